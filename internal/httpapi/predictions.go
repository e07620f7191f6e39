package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/antoniostano/ridewise/internal/memory"
)

type predictionRequest struct {
	UserID      string  `json:"user_id"`
	Kind        string  `json:"kind"`
	Demand      float64 `json:"demand"`
	Date        string  `json:"date"`
	Hour        *int    `json:"hour"`
	Season      string  `json:"season"`
	WeatherCode int     `json:"weather_code"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WorkingDay  bool    `json:"working_day"`
	Holiday     bool    `json:"holiday"`
}

// weatherImpactFor maps the dataset's weather situation code to a label:
// 1 is clear, 2 is mist, 3 and above is rain or worse.
func weatherImpactFor(code int) string {
	switch {
	case code <= 1:
		return "Low"
	case code == 2:
		return "Medium"
	default:
		return "High"
	}
}

// peakStatusFor labels predicted hourly volume.
func peakStatusFor(demand float64) string {
	switch {
	case demand > 400:
		return "Peak"
	case demand > 200:
		return "Normal"
	default:
		return "Off-Peak"
	}
}

func (s *Server) handleCreatePrediction(w http.ResponseWriter, r *http.Request) {
	var req predictionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}
	if req.Kind != memory.PredictionHourly && req.Kind != memory.PredictionDaily {
		respondError(w, http.StatusBadRequest, "invalid_kind", "kind must be hourly or daily")
		return
	}
	if req.Demand < 0 {
		respondError(w, http.StatusBadRequest, "invalid_demand", "demand must be non-negative")
		return
	}

	hour := -1
	if req.Kind == memory.PredictionHourly {
		if req.Hour == nil {
			respondError(w, http.StatusBadRequest, "invalid_hour", "hour is required for hourly predictions")
			return
		}
		if *req.Hour < 0 || *req.Hour > 23 {
			respondError(w, http.StatusBadRequest, "invalid_hour", "hour must be in [0, 23]")
			return
		}
		hour = *req.Hour
	}

	record := memory.PredictionRecord{
		UserID:        req.UserID,
		Kind:          req.Kind,
		Demand:        req.Demand,
		Date:          req.Date,
		Hour:          hour,
		Season:        req.Season,
		WeatherCode:   req.WeatherCode,
		WeatherImpact: weatherImpactFor(req.WeatherCode),
		Temperature:   req.Temperature,
		Humidity:      req.Humidity,
		WorkingDay:    req.WorkingDay,
		Holiday:       req.Holiday,
		PeakStatus:    peakStatusFor(req.Demand),
	}

	saved, err := s.store.SavePrediction(r.Context(), record)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handlePredictionHistory(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = "anonymous"
	}

	kind := strings.TrimSpace(r.URL.Query().Get("type"))
	switch kind {
	case "", memory.PredictionHourly, memory.PredictionDaily:
	default:
		respondError(w, http.StatusBadRequest, "invalid_type", "type must be hourly or daily")
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	items, err := s.store.RecentPredictions(r.Context(), userID, kind, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"predictions": items,
		"count":       len(items),
	})
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = "anonymous"
	}

	stats, err := s.store.Stats(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", err.Error())
		return
	}
	last, err := s.store.LastPrediction(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query_failed", err.Error())
		return
	}

	summary := map[string]any{
		"stats": stats,
	}
	if last != nil {
		summary["latest_prediction"] = last
	}
	respondJSON(w, http.StatusOK, summary)
}
