package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/antoniostano/ridewise/internal/memory"
)

// contextTurnLimit bounds how much history rides along with each request.
const contextTurnLimit = 10

// ContextBuilder assembles the app-state snippet and conversation history
// attached to model requests.
type ContextBuilder struct {
	store memory.Store
}

func NewContextBuilder(store memory.Store) *ContextBuilder {
	return &ContextBuilder{store: store}
}

// BuildRequest prepares a model request for one user message. Store errors
// degrade to a contextless request rather than failing the turn.
func (b *ContextBuilder) BuildRequest(ctx context.Context, userID, message string) Request {
	req := Request{UserID: userID, Message: message}
	if b == nil || b.store == nil || isBareGreeting(message) {
		return req
	}

	if history, err := b.store.RecentContext(ctx, userID, contextTurnLimit); err == nil {
		req.History = history
	}
	req.Context = b.appContext(ctx, userID)
	return req
}

func (b *ContextBuilder) appContext(ctx context.Context, userID string) string {
	var sb strings.Builder
	sb.WriteString(pageCatalog)

	if stats, err := b.store.Stats(ctx, userID); err == nil && stats.Total > 0 {
		fmt.Fprintf(&sb, "\nPrediction history: %d total (%d hourly, %d daily), average demand %.1f.\n",
			stats.Total, stats.Hourly, stats.Daily, stats.AverageDemand)
	}

	if last, err := b.store.LastPrediction(ctx, userID); err == nil && last != nil {
		fmt.Fprintf(&sb, "\nLatest prediction: %s forecast of %.1f rides for %s", last.Kind, last.Demand, last.Date)
		if last.Kind == memory.PredictionHourly && last.Hour >= 0 {
			fmt.Fprintf(&sb, " at hour %d", last.Hour)
		}
		fmt.Fprintf(&sb, " (season %s, weather impact %s, peak status %s).\n",
			last.Season, last.WeatherImpact, last.PeakStatus)
	}

	return sb.String()
}

const pageCatalog = `App pages: Dashboard (activity summary), Predict (hourly and daily demand
forecasts), History (past predictions, filterable by type), Chat (this
assistant, with voice input and spoken replies).`
