// Package scheduler runs the recurring pipeline jobs on cron
// schedules, guaranteeing at most one in-flight run per job.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is one scheduled unit of work. The context is cancelled when
// the scheduler stops.
type JobFunc func(ctx context.Context) error

// Scheduler wraps a cron runner. Each registered job is coalesced:
// firings that arrive while a run is in progress collapse into a
// single follow-up run instead of piling up.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	jobs   []*coalescedJob
}

func New(loc *time.Location) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithParser(parser)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job under a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
// Examples: "*/5 * * * *" (every 5 minutes), "0 6 1 * *" (monthly, 1st 6am).
func (s *Scheduler) Add(name, schedule string, fn JobFunc) error {
	j := &coalescedJob{name: name, fn: fn, sched: s}
	entryID, err := s.cron.AddJob(schedule, j)
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
	}
	j.entryID = entryID
	s.jobs = append(s.jobs, j)
	log.Printf("Job %s scheduled (cron: %s)", name, schedule)
	return nil
}

// Start launches the cron loop and logs the first firing time of each
// job.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, j := range s.jobs {
		next := s.cron.Entry(j.entryID).Next
		log.Printf("Next %s run at %s", j.name, next.Format("Mon Jan 2 15:04"))
	}
}

// RunNow fires the named job immediately, outside its schedule. Used
// for the eager startup runs.
func (s *Scheduler) RunNow(name string) {
	for _, j := range s.jobs {
		if j.name == name {
			j.Run()
			return
		}
	}
	log.Printf("RunNow: no job named %s", name)
}

// Stop halts the cron loop and waits for in-flight runs, pending
// catch-ups included, to finish. The job context stays live until the
// wait returns so a run caught mid-shutdown completes its work.
func (s *Scheduler) Stop() {
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()
	s.wg.Wait()
	s.cancel()
}

// coalescedJob serializes runs of a single job. A firing that lands
// mid-run sets pending; the running goroutine loops once more before
// releasing, so any burst of missed firings becomes exactly one
// catch-up run.
type coalescedJob struct {
	name    string
	fn      JobFunc
	sched   *Scheduler
	entryID cron.EntryID

	mu      sync.Mutex
	running bool
	pending bool
}

func (j *coalescedJob) Run() {
	j.mu.Lock()
	if j.running {
		j.pending = true
		j.mu.Unlock()
		log.Printf("Job %s still running, coalescing this firing", j.name)
		return
	}
	j.running = true
	j.mu.Unlock()

	j.sched.wg.Add(1)
	go func() {
		defer j.sched.wg.Done()
		for {
			j.runOnce()

			j.mu.Lock()
			if !j.pending {
				j.running = false
				j.mu.Unlock()
				return
			}
			j.pending = false
			j.mu.Unlock()
			log.Printf("Job %s running coalesced catch-up", j.name)
		}
	}()
}

func (j *coalescedJob) runOnce() {
	started := time.Now()
	if err := j.fn(j.sched.ctx); err != nil {
		log.Printf("Job %s error after %s: %v", j.name, time.Since(started).Round(time.Millisecond), err)
		return
	}
	log.Printf("Job %s finished in %s", j.name, time.Since(started).Round(time.Millisecond))
}
