package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fitmetrics/internal/domain"
	"fitmetrics/internal/forecast"
)

type fakeService struct {
	feedbacks  []domain.FeedbackRecord
	words      []domain.WordFrequencyEntry
	points     []domain.ForecastPoint
	runErr     error
	runSummary domain.ForecastSummary

	lastPeriods int
	lastForce   bool
}

func (f *fakeService) CreateFeedback(ctx context.Context, text string) (domain.FeedbackRecord, error) {
	rec := domain.FeedbackRecord{
		ID:        "fb-1",
		Text:      text,
		Sentiment: domain.SentimentUnresolved,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.feedbacks = append(f.feedbacks, rec)
	return rec, nil
}

func (f *fakeService) ListFeedbacks(ctx context.Context) ([]domain.FeedbackRecord, error) {
	return f.feedbacks, nil
}

func (f *fakeService) WordFrequencies(ctx context.Context) ([]domain.WordFrequencyEntry, error) {
	return f.words, nil
}

func (f *fakeService) CurrentForecasts(ctx context.Context) ([]domain.ForecastPoint, error) {
	return f.points, nil
}

func (f *fakeService) RunForecastCycle(ctx context.Context, periods int, force bool) (domain.ForecastSummary, error) {
	f.lastPeriods = periods
	f.lastForce = force
	return f.runSummary, f.runErr
}

func doRequest(t *testing.T, svc Service, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	New(":0", svc).Router().ServeHTTP(rec, req)
	return rec
}

func TestCreateFeedback(t *testing.T) {
	svc := &fakeService{}
	rec := doRequest(t, svc, http.MethodPost, "/feedbacks", `{"text":"academia otima"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID        string `json:"id"`
		Sentiment string `json:"sentiment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" || resp.Sentiment != "unresolved" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCreateFeedbackRejectsEmptyText(t *testing.T) {
	rec := doRequest(t, &fakeService{}, http.MethodPost, "/feedbacks", `{"text":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = doRequest(t, &fakeService{}, http.MethodPost, "/feedbacks", `{invalid`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on malformed JSON, got %d", rec.Code)
	}
}

func TestWordFrequencyGroupsAllLabels(t *testing.T) {
	svc := &fakeService{words: []domain.WordFrequencyEntry{
		{Word: "aula", Sentiment: domain.SentimentPositive, Count: 5},
		{Word: "fila", Sentiment: domain.SentimentNegative, Count: 3},
	}}
	rec := doRequest(t, svc, http.MethodGet, "/feedbacks/word-frequency", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var grouped map[string][]struct {
		Word  string `json:"word"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &grouped); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, label := range []string{"positive", "negative", "neutral"} {
		if _, ok := grouped[label]; !ok {
			t.Fatalf("label %s missing from grouped response", label)
		}
	}
	if len(grouped["positive"]) != 1 || grouped["positive"][0].Word != "aula" {
		t.Fatalf("unexpected positive group: %+v", grouped["positive"])
	}
	if len(grouped["neutral"]) != 0 {
		t.Fatalf("neutral group should be empty, got %+v", grouped["neutral"])
	}
}

func TestRunForecastParamsAndErrors(t *testing.T) {
	svc := &fakeService{runSummary: domain.ForecastSummary{Count: 6, ModelVersion: "v2.0"}}
	rec := doRequest(t, svc, http.MethodPost, "/forecasts/run?periods=12&force=true", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastPeriods != 12 || !svc.lastForce {
		t.Fatalf("params not forwarded: periods=%d force=%v", svc.lastPeriods, svc.lastForce)
	}

	rec = doRequest(t, svc, http.MethodPost, "/forecasts/run?periods=99", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range periods, got %d", rec.Code)
	}

	svc.runErr = forecast.ErrInsufficientHistory
	rec = doRequest(t, svc, http.MethodPost, "/forecasts/run", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 when history is insufficient, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	rec := doRequest(t, &fakeService{}, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
