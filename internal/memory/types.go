package memory

import (
	"context"
	"time"
)

// TurnRecord stores a single user or assistant conversational turn.
type TurnRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	SessionID   string    `json:"session_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Prediction kinds.
const (
	PredictionHourly = "hourly"
	PredictionDaily  = "daily"
)

// PredictionRecord stores one demand forecast a user generated. Hourly
// records carry Hour; daily records leave it at -1.
type PredictionRecord struct {
	ID            int64     `json:"id"`
	UserID        string    `json:"user_id"`
	Kind          string    `json:"kind"`
	Demand        float64   `json:"demand"`
	Date          string    `json:"date"`
	Hour          int       `json:"hour"`
	Season        string    `json:"season"`
	WeatherCode   int       `json:"weather_code"`
	WeatherImpact string    `json:"weather_impact"`
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	WorkingDay    bool      `json:"working_day"`
	Holiday       bool      `json:"holiday"`
	PeakStatus    string    `json:"peak_status"`
	CreatedAt     time.Time `json:"created_at"`
}

// PredictionStats summarizes a user's forecast history for the dashboard.
type PredictionStats struct {
	Total         int     `json:"total"`
	Hourly        int     `json:"hourly"`
	Daily         int     `json:"daily"`
	AverageDemand float64 `json:"average_demand"`
}

// historyCap bounds how many predictions are retained per user.
const historyCap = 100

// Store persists and retrieves conversational memory and forecast history.
type Store interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
	RecentContext(ctx context.Context, userID string, limit int) ([]TurnRecord, error)
	ResetTurns(ctx context.Context, userID string) error

	SavePrediction(ctx context.Context, record PredictionRecord) (PredictionRecord, error)
	// RecentPredictions returns newest first; kind filters to hourly or
	// daily when non-empty.
	RecentPredictions(ctx context.Context, userID string, kind string, limit int) ([]PredictionRecord, error)
	LastPrediction(ctx context.Context, userID string) (*PredictionRecord, error)
	Stats(ctx context.Context, userID string) (PredictionStats, error)

	Close() error
}
