package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"fitmetrics/internal/app"
	"fitmetrics/internal/config"
)

func main() {
	cfg := config.Load()

	svc, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Printf("Received %s, shutting down", s)
		svc.Stop()
	}()

	log.Println("Starting FitMetrics service...")
	if err := svc.Start(); err != nil {
		log.Fatalf("Service error: %v", err)
	}

	// Start returns as soon as the HTTP server closes; the scheduler
	// may still be draining in-flight jobs inside Stop.
	<-svc.Done()
	log.Println("Shutdown complete")
}
