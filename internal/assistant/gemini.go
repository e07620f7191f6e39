package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/antoniostano/ridewise/internal/reliability"
)

const systemPrompt = `You are the RideWise assistant, a helpful guide inside a bike-sharing demand
forecasting dashboard. Users generate hourly and daily demand predictions and
ask you to explain them, summarize their history, or navigate the app.

Rules:
- Be concise and concrete. Use short paragraphs, numbered lists or bullet
  points so answers read well and can be spoken aloud.
- When app context is provided, ground your answer in those numbers instead
  of inventing values.
- Demand numbers are rides per hour for hourly forecasts and rides per day
  for daily forecasts.
- If asked about something outside the app, answer briefly and steer back to
  forecasting topics.`

// GeminiAdapter answers with Google Gemini, retrying transient failures and
// trying a cheaper fallback model before giving up.
type GeminiAdapter struct {
	client        *genai.Client
	model         string
	fallbackModel string
	maxAttempts   int
}

func NewGeminiAdapter(ctx context.Context, apiKey, model, fallbackModel string) (*GeminiAdapter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &GeminiAdapter{
		client:        client,
		model:         model,
		fallbackModel: fallbackModel,
		maxAttempts:   2,
	}, nil
}

func (a *GeminiAdapter) Available() bool { return a != nil && a.client != nil }

func (a *GeminiAdapter) Generate(ctx context.Context, req Request) (Reply, error) {
	if !a.Available() {
		return Reply{}, ErrUnavailable
	}

	contents := buildContents(req)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
	}

	text, err := a.generateWith(ctx, a.model, contents, cfg)
	if err == nil {
		return Reply{Text: text, Source: SourceModel}, nil
	}
	if a.fallbackModel == "" || a.fallbackModel == a.model {
		return Reply{}, err
	}

	log.Printf("assistant: model %s failed (%v), trying %s", a.model, err, a.fallbackModel)
	text, ferr := a.generateWith(ctx, a.fallbackModel, contents, cfg)
	if ferr != nil {
		// Report the primary failure; it decides quota classification.
		return Reply{}, err
	}
	return Reply{Text: text, Source: SourceFallbackModel}, nil
}

func (a *GeminiAdapter) generateWith(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	var lastErr error
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := reliability.ExponentialBackoff(attempt, 200*time.Millisecond, 2*time.Second)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := a.client.Models.GenerateContent(ctx, model, contents, cfg)
		if err != nil {
			lastErr = fmt.Errorf("generate content: %w", err)
			if reliability.IsQuotaFailure(err.Error()) || !reliability.IsTransientModelFailure(err.Error()) {
				return "", lastErr
			}
			continue
		}

		text := extractText(resp)
		if text == "" {
			lastErr = fmt.Errorf("model %s returned no text", model)
			continue
		}
		return text, nil
	}
	return "", lastErr
}

// buildContents turns history plus the current message into the model's turn
// list. Bare greetings go in without history or app context.
func buildContents(req Request) []*genai.Content {
	if isBareGreeting(req.Message) {
		return []*genai.Content{
			{Parts: []*genai.Part{{Text: req.Message}}, Role: "user"},
		}
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		role := "user"
		if turn.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: turn.Content}},
			Role:  role,
		})
	}

	message := req.Message
	if strings.TrimSpace(req.Context) != "" {
		message = fmt.Sprintf("App context:\n%s\n\nUser question: %s", req.Context, req.Message)
	}
	contents = append(contents, &genai.Content{
		Parts: []*genai.Part{{Text: message}},
		Role:  "user",
	})
	return contents
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}
