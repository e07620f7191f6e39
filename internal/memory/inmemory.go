package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use.
type InMemoryStore struct {
	mu          sync.RWMutex
	records     map[string][]TurnRecord
	predictions map[string][]PredictionRecord
	nextPredID  int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:     make(map[string][]TurnRecord),
		predictions: make(map[string][]PredictionRecord),
	}
}

func (s *InMemoryStore) SaveTurn(_ context.Context, record TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.records[record.UserID] = append(s.records[record.UserID], record)
	return nil
}

func (s *InMemoryStore) RecentContext(_ context.Context, userID string, limit int) ([]TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.records[userID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]TurnRecord, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) ResetTurns(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

func (s *InMemoryStore) SavePrediction(_ context.Context, record PredictionRecord) (PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPredID++
	record.ID = s.nextPredID
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	arr := append(s.predictions[record.UserID], record)
	if len(arr) > historyCap {
		arr = arr[len(arr)-historyCap:]
	}
	s.predictions[record.UserID] = arr
	return record, nil
}

func (s *InMemoryStore) RecentPredictions(_ context.Context, userID string, kind string, limit int) ([]PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.predictions[userID]
	out := make([]PredictionRecord, 0, len(arr))
	for i := len(arr) - 1; i >= 0; i-- {
		if kind != "" && arr[i].Kind != kind {
			continue
		}
		out = append(out, arr[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) LastPrediction(_ context.Context, userID string) (*PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.predictions[userID]
	if len(arr) == 0 {
		return nil, nil
	}
	last := arr[len(arr)-1]
	return &last, nil
}

func (s *InMemoryStore) Stats(_ context.Context, userID string) (PredictionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stats PredictionStats
	var sum float64
	for _, p := range s.predictions[userID] {
		stats.Total++
		switch p.Kind {
		case PredictionHourly:
			stats.Hourly++
		case PredictionDaily:
			stats.Daily++
		}
		sum += p.Demand
	}
	if stats.Total > 0 {
		stats.AverageDemand = sum / float64(stats.Total)
	}
	return stats, nil
}

func (s *InMemoryStore) Close() error { return nil }
