// Package app wires storage, classification, forecasting, scheduling
// and the HTTP API into one service.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"fitmetrics/internal/config"
	"fitmetrics/internal/domain"
	"fitmetrics/internal/forecast"
	"fitmetrics/internal/notify"
	"fitmetrics/internal/scheduler"
	"fitmetrics/internal/sentiment"
	"fitmetrics/internal/server"
	"fitmetrics/internal/storage/sqlite"
	"fitmetrics/internal/textnorm"
)

const minProfitHistory = 3

type Service struct {
	cfg      config.Config
	db       *sql.DB
	job      *sentiment.Job
	pipeline *forecast.Pipeline
	notifier notify.Notifier
	sched    *scheduler.Scheduler
	srv      *server.Server
	stopped  chan struct{}
}

func New(cfg config.Config) (*Service, error) {
	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)

	norm := textnorm.New()
	if cfg.LexiconPath != "" {
		lex, err := textnorm.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("load lexicon %s: %w", cfg.LexiconPath, err)
		}
		if err := norm.ApplyLexicon(lex); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply lexicon %s: %w", cfg.LexiconPath, err)
		}
		log.Printf("Lexicon extensions loaded from %s", cfg.LexiconPath)
	}

	var classifier sentiment.Classifier
	switch cfg.ClassifierProvider {
	case "anthropic":
		classifier = sentiment.NewAnthropicClassifier(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.ClassifyBatchSize)
		log.Printf("Sentiment classifier: anthropic (batch size %d)", cfg.ClassifyBatchSize)
	default:
		model, err := sentiment.LoadLocalModel(cfg.SentimentModelPath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("load sentiment model %s: %w", cfg.SentimentModelPath, err)
		}
		classifier = model
		log.Printf("Sentiment classifier: local model %s (%s)", cfg.SentimentModelPath, model.Version())
	}

	s := &Service{
		cfg:      cfg,
		db:       db,
		job:      sentiment.NewJob(db, classifier, norm, cfg.TopWords),
		pipeline: forecast.NewPipeline(db, cfg.ModelVersion, cfg.ForecastPeriods),
		notifier: notify.NewSlack(cfg.SlackBotToken, cfg.SlackChannelID),
		sched:    scheduler.New(cfg.Location),
		stopped:  make(chan struct{}),
	}
	s.srv = server.New(cfg.HTTPAddr, s)

	if err := s.registerJobs(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) registerJobs() error {
	if err := s.sched.Add("classification", s.cfg.ClassifySchedule, func(ctx context.Context) error {
		_, err := s.job.RunCycle(ctx)
		return err
	}); err != nil {
		return err
	}

	// Monthly regeneration replaces the forecast unconditionally;
	// the weekly check defers to the staleness policy.
	if err := s.sched.Add("forecast", s.cfg.ForecastSchedule, func(ctx context.Context) error {
		return s.scheduledForecast(ctx, true)
	}); err != nil {
		return err
	}
	return s.sched.Add("staleness-check", s.cfg.StalenessSchedule, func(ctx context.Context) error {
		return s.scheduledForecast(ctx, false)
	})
}

func (s *Service) scheduledForecast(ctx context.Context, force bool) error {
	summary, err := s.pipeline.Run(ctx, 0, force)
	if err != nil {
		if notifyErr := s.notifier.Notify(fmt.Sprintf("Profit forecast run failed: %v", err)); notifyErr != nil {
			log.Printf("Notify error: %v", notifyErr)
		}
		return err
	}
	if force {
		msg := fmt.Sprintf("Profit forecast refreshed: %d months through %s (model %s)",
			summary.Count, summary.PeriodEnd.Format("Jan 2006"), summary.ModelVersion)
		if notifyErr := s.notifier.Notify(msg); notifyErr != nil {
			log.Printf("Notify error: %v", notifyErr)
		}
	}
	return nil
}

// Start seeds the pipelines, launches the schedulers and serves the
// HTTP API. It blocks until Stop is called.
func (s *Service) Start() error {
	ctx := context.Background()
	s.seedForecasts(ctx)

	s.sched.Start()
	s.sched.RunNow("classification")

	return s.srv.Start()
}

// seedForecasts regenerates the forecast at startup when fewer than
// three future-dated entries exist. Thin profit history downgrades the
// seed to a warning instead of failing startup.
func (s *Service) seedForecasts(ctx context.Context) {
	count, err := sqlite.CountProfits(s.db)
	if err != nil {
		log.Printf("Startup seed skipped, profit count failed: %v", err)
		return
	}
	if count < minProfitHistory {
		log.Printf("Startup seed skipped: only %d profit records (need %d)", count, minProfitHistory)
		return
	}
	if count < 6 {
		log.Printf("Limited profit history (%d records), forecasts will use the conservative profile", count)
	}

	entries, err := sqlite.ListForecasts(s.db)
	if err != nil {
		log.Printf("Startup seed skipped, forecast load failed: %v", err)
		return
	}
	if !forecast.NeedsStartupSeed(entries, time.Now()) {
		log.Printf("Startup seed not needed: %d forecast entries on file", len(entries))
		return
	}

	log.Println("Seeding profit forecast at startup")
	if _, err := s.pipeline.Run(ctx, 0, true); err != nil {
		log.Printf("Startup forecast seed failed: %v", err)
	}
}

// Stop shuts the HTTP server and schedulers down, waiting for
// in-flight jobs, then closes the database. Done unblocks last:
// shutting the server down makes Start return early, so callers must
// wait on Done for the jobs still draining.
func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	s.sched.Stop()
	if err := s.db.Close(); err != nil {
		log.Printf("DB close error: %v", err)
	}
	close(s.stopped)
}

// Done is closed once Stop has fully drained the service.
func (s *Service) Done() <-chan struct{} {
	return s.stopped
}

func (s *Service) RunClassificationCycle(ctx context.Context) (domain.ClassificationSummary, error) {
	return s.job.RunCycle(ctx)
}

func (s *Service) RunForecastCycle(ctx context.Context, periods int, force bool) (domain.ForecastSummary, error) {
	return s.pipeline.Run(ctx, periods, force)
}

func (s *Service) CurrentForecasts(ctx context.Context) ([]domain.ForecastPoint, error) {
	entries, err := sqlite.ListForecasts(s.db)
	if err != nil {
		return nil, err
	}
	points := make([]domain.ForecastPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, domain.ForecastPoint{
			Date:          e.ForecastDate,
			Predicted:     e.PredictedNetProfit,
			Lower:         e.LowerBound,
			Upper:         e.UpperBound,
			IntervalWidth: e.UpperBound - e.LowerBound,
		})
	}
	return points, nil
}

func (s *Service) CreateFeedback(ctx context.Context, text string) (domain.FeedbackRecord, error) {
	rec := domain.FeedbackRecord{
		ID:        uuid.NewString(),
		Text:      text,
		Sentiment: domain.SentimentUnresolved,
		CreatedAt: time.Now().UTC(),
	}
	if err := sqlite.InsertFeedback(s.db, rec); err != nil {
		return domain.FeedbackRecord{}, err
	}
	return rec, nil
}

func (s *Service) ListFeedbacks(ctx context.Context) ([]domain.FeedbackRecord, error) {
	return sqlite.ListFeedbacks(s.db)
}

func (s *Service) WordFrequencies(ctx context.Context) ([]domain.WordFrequencyEntry, error) {
	return sqlite.ListWordFrequencies(s.db)
}
