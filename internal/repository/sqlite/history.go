// Package sqlite implements the history repository on an embedded
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/neha-iitjdh/ChurnShield-AI/internal/history"
)

// timeLayout matches SQLite's CURRENT_TIMESTAMP rendering so DATE() and
// datetime() comparisons work on stored values.
const timeLayout = "2006-01-02 15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_id TEXT,
	customer_data TEXT,
	churn_probability REAL,
	risk_level TEXT,
	will_churn INTEGER,
	prediction_type TEXT DEFAULT 'single',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// Open opens the history database at path, creating the file and schema
// when missing. The pool is limited to one connection; SQLite serializes
// writers anyway and a single connection keeps the pragmas effective.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=5000`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

// HistoryRepo implements history.Repository against SQLite.
type HistoryRepo struct{ db *sql.DB }

// NewHistoryRepo creates a SQLite-backed history repository.
func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

func (r *HistoryRepo) Save(ctx context.Context, p *history.Prediction) error {
	createdAt := time.Now().UTC().Format(timeLayout)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO predictions
			(customer_id, customer_data, churn_probability, risk_level, will_churn, prediction_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, nullIfEmpty(p.CustomerID), string(p.CustomerData), p.ChurnProbability,
		p.RiskLevel, boolToInt(p.WillChurn), p.PredictionType, createdAt)
	if err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("prediction id: %w", err)
	}
	p.ID = id
	p.CreatedAt = createdAt
	return nil
}

func (r *HistoryRepo) List(ctx context.Context, limit, offset int) ([]history.Prediction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_id, customer_data, churn_probability, risk_level,
		       will_churn, prediction_type, created_at
		FROM predictions
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var out []history.Prediction
	for rows.Next() {
		var (
			p          history.Prediction
			customerID sql.NullString
			data       string
			willChurn  int
		)
		if err := rows.Scan(&p.ID, &customerID, &data, &p.ChurnProbability,
			&p.RiskLevel, &willChurn, &p.PredictionType, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.CustomerID = customerID.String
		p.CustomerData = json.RawMessage(data)
		p.WillChurn = willChurn != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *HistoryRepo) Stats(ctx context.Context) (*history.Stats, error) {
	s := &history.Stats{RiskDistribution: make(map[string]int)}

	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM predictions`).Scan(&s.TotalPredictions); err != nil {
		return nil, fmt.Errorf("count predictions: %w", err)
	}

	// Averages are NULL on an empty table and report as zero.
	var churnRate, avgProb sql.NullFloat64
	if err := r.db.QueryRowContext(ctx,
		`SELECT AVG(will_churn) * 100, AVG(churn_probability) FROM predictions`).
		Scan(&churnRate, &avgProb); err != nil {
		return nil, fmt.Errorf("prediction averages: %w", err)
	}
	s.OverallChurnRate = round2(churnRate.Float64)
	s.AverageProbability = round2(avgProb.Float64)

	rows, err := r.db.QueryContext(ctx, `
		SELECT risk_level, COUNT(*)
		FROM predictions
		GROUP BY risk_level
	`)
	if err != nil {
		return nil, fmt.Errorf("risk distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			level string
			count int
		)
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("scan risk distribution: %w", err)
		}
		s.RiskDistribution[level] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trendRows, err := r.db.QueryContext(ctx, `
		SELECT DATE(created_at) AS date, COUNT(*) AS count, AVG(churn_probability) AS avg_prob
		FROM predictions
		WHERE created_at >= datetime('now', '-7 days')
		GROUP BY DATE(created_at)
		ORDER BY date
	`)
	if err != nil {
		return nil, fmt.Errorf("recent trend: %w", err)
	}
	defer trendRows.Close()
	for trendRows.Next() {
		var p history.TrendPoint
		var avg float64
		if err := trendRows.Scan(&p.Date, &p.Count, &avg); err != nil {
			return nil, fmt.Errorf("scan trend: %w", err)
		}
		p.AverageProbability = round2(avg)
		s.RecentTrend = append(s.RecentTrend, p)
	}
	return s, trendRows.Err()
}

func (r *HistoryRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM predictions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete prediction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete prediction: %w", err)
	}
	if n == 0 {
		return history.ErrNotFound
	}
	return nil
}

func (r *HistoryRepo) Clear(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM predictions`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return n, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
