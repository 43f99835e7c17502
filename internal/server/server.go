// Package server exposes the feedback and forecast operations over a
// small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"fitmetrics/internal/domain"
	"fitmetrics/internal/forecast"
)

// Service is the application surface the handlers call into.
type Service interface {
	CreateFeedback(ctx context.Context, text string) (domain.FeedbackRecord, error)
	ListFeedbacks(ctx context.Context) ([]domain.FeedbackRecord, error)
	WordFrequencies(ctx context.Context) ([]domain.WordFrequencyEntry, error)
	CurrentForecasts(ctx context.Context) ([]domain.ForecastPoint, error)
	RunForecastCycle(ctx context.Context, periods int, force bool) (domain.ForecastSummary, error)
}

type Server struct {
	svc  Service
	http *http.Server
}

func New(addr string, svc Service) *Server {
	s := &Server{svc: svc}
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Router builds the route table. Exposed so tests can drive handlers
// without a listening socket.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/feedbacks", s.handleCreateFeedback).Methods("POST")
	r.HandleFunc("/feedbacks", s.handleListFeedbacks).Methods("GET")
	r.HandleFunc("/feedbacks/word-frequency", s.handleWordFrequency).Methods("GET")
	r.HandleFunc("/forecasts", s.handleListForecasts).Methods("GET")
	r.HandleFunc("/forecasts/run", s.handleRunForecast).Methods("POST")
	return r
}

func (s *Server) Start() error {
	log.Printf("HTTP API listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type feedbackResponse struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sentiment string    `json:"sentiment"`
	CreatedAt time.Time `json:"created_at"`
}

func toFeedbackResponse(rec domain.FeedbackRecord) feedbackResponse {
	return feedbackResponse{
		ID:        rec.ID,
		Text:      rec.Text,
		Sentiment: string(rec.Sentiment),
		CreatedAt: rec.CreatedAt,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	rec, err := s.svc.CreateFeedback(r.Context(), body.Text)
	if err != nil {
		log.Printf("create feedback error: %v", err)
		writeError(w, http.StatusInternalServerError, "could not store feedback")
		return
	}
	writeJSON(w, http.StatusCreated, toFeedbackResponse(rec))
}

func (s *Server) handleListFeedbacks(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.ListFeedbacks(r.Context())
	if err != nil {
		log.Printf("list feedbacks error: %v", err)
		writeError(w, http.StatusInternalServerError, "could not list feedbacks")
		return
	}
	out := make([]feedbackResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toFeedbackResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

type wordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

func (s *Server) handleWordFrequency(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.WordFrequencies(r.Context())
	if err != nil {
		log.Printf("word frequency error: %v", err)
		writeError(w, http.StatusInternalServerError, "could not load word frequencies")
		return
	}

	// Grouped by label; every known label is present even when empty.
	grouped := make(map[string][]wordCount, 3)
	for _, label := range domain.KnownSentiments() {
		grouped[string(label)] = []wordCount{}
	}
	for _, e := range entries {
		key := string(e.Sentiment)
		grouped[key] = append(grouped[key], wordCount{Word: e.Word, Count: e.Count})
	}
	writeJSON(w, http.StatusOK, grouped)
}

func (s *Server) handleListForecasts(w http.ResponseWriter, r *http.Request) {
	points, err := s.svc.CurrentForecasts(r.Context())
	if err != nil {
		log.Printf("list forecasts error: %v", err)
		writeError(w, http.StatusInternalServerError, "could not load forecasts")
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleRunForecast(w http.ResponseWriter, r *http.Request) {
	periods := 0
	if raw := r.URL.Query().Get("periods"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 24 {
			writeError(w, http.StatusBadRequest, "periods must be an integer between 1 and 24")
			return
		}
		periods = parsed
	}
	force := r.URL.Query().Get("force") == "true"

	summary, err := s.svc.RunForecastCycle(r.Context(), periods, force)
	switch {
	case errors.Is(err, forecast.ErrNoHistory), errors.Is(err, forecast.ErrInsufficientHistory):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Printf("forecast run error: %v", err)
		writeError(w, http.StatusInternalServerError, "forecast generation failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
