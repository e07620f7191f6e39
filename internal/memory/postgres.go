package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists conversational memory and forecast history in
// PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_turns (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			pii_redacted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_turns_user_created ON chat_turns (user_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			demand DOUBLE PRECISION NOT NULL,
			date TEXT NOT NULL,
			hour INT NOT NULL DEFAULT -1,
			season TEXT NOT NULL DEFAULT '',
			weather_code INT NOT NULL DEFAULT 1,
			weather_impact TEXT NOT NULL DEFAULT '',
			temperature DOUBLE PRECISION NOT NULL DEFAULT 0,
			humidity DOUBLE PRECISION NOT NULL DEFAULT 0,
			working_day BOOLEAN NOT NULL DEFAULT FALSE,
			holiday BOOLEAN NOT NULL DEFAULT FALSE,
			peak_status TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_user_created ON predictions (user_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveTurn(ctx context.Context, record TurnRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_turns (id, user_id, session_id, role, content, pii_redacted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID,
		record.UserID,
		record.SessionID,
		record.Role,
		record.Content,
		record.PIIRedacted,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentContext(ctx context.Context, userID string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, session_id, role, content, pii_redacted, created_at
		 FROM chat_turns WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent context: %w", err)
	}
	defer rows.Close()

	items := make([]TurnRecord, 0, limit)
	for rows.Next() {
		var r TurnRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.SessionID, &r.Role, &r.Content, &r.PIIRedacted, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan context row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate context rows: %w", err)
	}

	// Reverse into chronological order for prompt coherence.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items, nil
}

func (s *PostgresStore) ResetTurns(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chat_turns WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("reset turns: %w", err)
	}
	return nil
}

func (s *PostgresStore) SavePrediction(ctx context.Context, record PredictionRecord) (PredictionRecord, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO predictions (user_id, kind, demand, date, hour, season, weather_code, weather_impact,
			temperature, humidity, working_day, holiday, peak_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id`,
		record.UserID,
		record.Kind,
		record.Demand,
		record.Date,
		record.Hour,
		record.Season,
		record.WeatherCode,
		record.WeatherImpact,
		record.Temperature,
		record.Humidity,
		record.WorkingDay,
		record.Holiday,
		record.PeakStatus,
		record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		return PredictionRecord{}, fmt.Errorf("save prediction: %w", err)
	}

	// Keep only the newest entries per user.
	_, err = s.pool.Exec(ctx,
		`DELETE FROM predictions WHERE user_id=$1 AND id NOT IN (
			SELECT id FROM predictions WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2
		)`,
		record.UserID,
		historyCap,
	)
	if err != nil {
		return PredictionRecord{}, fmt.Errorf("trim prediction history: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) RecentPredictions(ctx context.Context, userID string, kind string, limit int) ([]PredictionRecord, error) {
	if limit <= 0 || limit > historyCap {
		limit = historyCap
	}

	query := `SELECT id, user_id, kind, demand, date, hour, season, weather_code, weather_impact,
			temperature, humidity, working_day, holiday, peak_status, created_at
		 FROM predictions WHERE user_id=$1`
	args := []any{userID}
	if kind != "" {
		query += ` AND kind=$2`
		args = append(args, kind)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	items := make([]PredictionRecord, 0, limit)
	for rows.Next() {
		r, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prediction rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) LastPrediction(ctx context.Context, userID string) (*PredictionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, kind, demand, date, hour, season, weather_code, weather_impact,
			temperature, humidity, working_day, holiday, peak_status, created_at
		 FROM predictions WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query last prediction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanPrediction(rows)
	if err != nil {
		return nil, err
	}
	return &r, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context, userID string) (PredictionStats, error) {
	var stats PredictionStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE kind=$2),
			COUNT(*) FILTER (WHERE kind=$3),
			COALESCE(AVG(demand), 0)
		 FROM predictions WHERE user_id=$1`,
		userID, PredictionHourly, PredictionDaily,
	).Scan(&stats.Total, &stats.Hourly, &stats.Daily, &stats.AverageDemand)
	if err != nil {
		return PredictionStats{}, fmt.Errorf("query prediction stats: %w", err)
	}
	return stats, nil
}

func scanPrediction(rows pgx.Rows) (PredictionRecord, error) {
	var r PredictionRecord
	err := rows.Scan(&r.ID, &r.UserID, &r.Kind, &r.Demand, &r.Date, &r.Hour, &r.Season, &r.WeatherCode,
		&r.WeatherImpact, &r.Temperature, &r.Humidity, &r.WorkingDay, &r.Holiday, &r.PeakStatus, &r.CreatedAt)
	if err != nil {
		return PredictionRecord{}, fmt.Errorf("scan prediction row: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
