package sqlite

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"fitmetrics/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS feedbacks (
		id          TEXT PRIMARY KEY,
		text        TEXT NOT NULL,
		sentiment   TEXT NOT NULL DEFAULT 'unresolved',
		confidence  REAL NOT NULL DEFAULT 0,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_feedbacks_sentiment ON feedbacks(sentiment);

	CREATE TABLE IF NOT EXISTS word_frequencies (
		word        TEXT NOT NULL,
		sentiment   TEXT NOT NULL,
		count       INTEGER NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (word, sentiment)
	);

	CREATE TABLE IF NOT EXISTS profits (
		period_start   DATETIME PRIMARY KEY,
		period_end     DATETIME NOT NULL,
		total_revenue  REAL NOT NULL DEFAULT 0,
		total_expenses REAL NOT NULL DEFAULT 0,
		net_profit     REAL,
		profit_margin  REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS profit_forecasts (
		forecast_date        DATETIME NOT NULL,
		predicted_net_profit REAL NOT NULL,
		lower_bound          REAL NOT NULL,
		upper_bound          REAL NOT NULL,
		model_version        TEXT NOT NULL,
		created_at           DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (forecast_date, model_version)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

// --- Feedback ---

func InsertFeedback(db *sql.DB, rec domain.FeedbackRecord) error {
	_, err := db.Exec(
		`INSERT INTO feedbacks (id, text, sentiment, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Text, string(rec.Sentiment), rec.Confidence, rec.CreatedAt,
	)
	return err
}

func ListFeedbacks(db *sql.DB) ([]domain.FeedbackRecord, error) {
	return queryFeedbacks(db,
		`SELECT id, text, sentiment, confidence, created_at
		 FROM feedbacks ORDER BY created_at, id`)
}

func UnresolvedFeedbacks(db *sql.DB) ([]domain.FeedbackRecord, error) {
	return queryFeedbacks(db,
		`SELECT id, text, sentiment, confidence, created_at
		 FROM feedbacks WHERE sentiment = ? ORDER BY created_at, id`,
		string(domain.SentimentUnresolved))
}

func queryFeedbacks(db *sql.DB, query string, args ...any) ([]domain.FeedbackRecord, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FeedbackRecord
	for rows.Next() {
		var rec domain.FeedbackRecord
		var sentiment string
		if err := rows.Scan(&rec.ID, &rec.Text, &sentiment, &rec.Confidence, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Sentiment = domain.Sentiment(sentiment)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SentimentUpdate carries one classification result back to storage.
type SentimentUpdate struct {
	ID         string
	Sentiment  domain.Sentiment
	Confidence float64
}

// ApplySentiments persists a batch of classification results in one
// transaction so a run is never half-visible.
func ApplySentiments(db *sql.DB, updates []SentimentUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE feedbacks SET sentiment = ?, confidence = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.Exec(string(u.Sentiment), u.Confidence, u.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func TextsBySentiment(db *sql.DB, s domain.Sentiment) ([]string, error) {
	rows, err := db.Query(`SELECT text FROM feedbacks WHERE sentiment = ? ORDER BY created_at, id`, string(s))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		if t != "" {
			texts = append(texts, t)
		}
	}
	return texts, rows.Err()
}

// --- Word frequencies ---

// ReplaceWordFrequencies truncates and rebuilds the whole aggregate
// table as one transaction. Readers only ever see a complete
// generation.
func ReplaceWordFrequencies(db *sql.DB, entries []domain.WordFrequencyEntry) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM word_frequencies`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO word_frequencies (word, sentiment, count) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.Word, string(e.Sentiment), e.Count); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListWordFrequencies returns aggregate rows ordered per sentiment by
// descending count.
func ListWordFrequencies(db *sql.DB) ([]domain.WordFrequencyEntry, error) {
	rows, err := db.Query(
		`SELECT word, sentiment, count, created_at
		 FROM word_frequencies ORDER BY sentiment, count DESC, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WordFrequencyEntry
	for rows.Next() {
		var e domain.WordFrequencyEntry
		var sentiment string
		if err := rows.Scan(&e.Word, &sentiment, &e.Count, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Sentiment = domain.Sentiment(sentiment)
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Profit history ---

func InsertProfit(db *sql.DB, rec domain.ProfitRecord) error {
	_, err := db.Exec(
		`INSERT INTO profits (period_start, period_end, total_revenue, total_expenses, net_profit, profit_margin)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.PeriodStart, rec.PeriodEnd, rec.TotalRevenue, rec.TotalExpenses, rec.NetProfit, rec.ProfitMargin,
	)
	return err
}

// ProfitSeries loads the (period start, net profit) series ordered by
// period start. NULL net profit comes back as NaN so the validation
// phase can drop it.
func ProfitSeries(db *sql.DB) ([]time.Time, []float64, error) {
	rows, err := db.Query(`SELECT period_start, net_profit FROM profits ORDER BY period_start`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var dates []time.Time
	var values []float64
	for rows.Next() {
		var d time.Time
		var v sql.NullFloat64
		if err := rows.Scan(&d, &v); err != nil {
			return nil, nil, err
		}
		dates = append(dates, d)
		if v.Valid {
			values = append(values, v.Float64)
		} else {
			values = append(values, math.NaN())
		}
	}
	return dates, values, rows.Err()
}

func CountProfits(db *sql.DB) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM profits`).Scan(&n)
	return n, err
}

// --- Forecasts ---

// ReplaceForecasts swaps the full forecast set inside one transaction:
// delete everything, insert the new horizon. Any failure rolls back so
// the previous set stays intact.
func ReplaceForecasts(db *sql.DB, entries []domain.ForecastEntry) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM profit_forecasts`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO profit_forecasts (forecast_date, predicted_net_profit, lower_bound, upper_bound, model_version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.ForecastDate, e.PredictedNetProfit, e.LowerBound, e.UpperBound, e.ModelVersion, e.CreatedAt); err != nil {
			return fmt.Errorf("insert forecast %s: %w", e.ForecastDate.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

func ListForecasts(db *sql.DB) ([]domain.ForecastEntry, error) {
	rows, err := db.Query(
		`SELECT forecast_date, predicted_net_profit, lower_bound, upper_bound, model_version, created_at
		 FROM profit_forecasts ORDER BY forecast_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ForecastEntry
	for rows.Next() {
		var e domain.ForecastEntry
		if err := rows.Scan(&e.ForecastDate, &e.PredictedNetProfit, &e.LowerBound, &e.UpperBound, &e.ModelVersion, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
