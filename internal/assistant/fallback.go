package assistant

import (
	"context"
	"strings"
)

// CannedAdapter serves keyword-matched answers about the app when no model
// is reachable. Replies use headings and lists so spoken playback still
// lands one point at a time.
type CannedAdapter struct{}

func (CannedAdapter) Available() bool { return true }

func (CannedAdapter) Generate(_ context.Context, req Request) (Reply, error) {
	return Reply{Text: cannedResponse(req.Message), Source: SourceCanned}, nil
}

type cannedRule struct {
	keywords []string
	response string
}

var cannedRules = []cannedRule{
	{
		keywords: []string{"hello", "hi", "hey", "greetings"},
		response: "Hello! I'm the RideWise assistant. Ask me about demand predictions, your dashboard, or how any feature works.",
	},
	{
		keywords: []string{"dashboard", "summary", "overview"},
		response: "## Dashboard\nThe dashboard shows your forecasting activity at a glance.\n1. Total predictions you have generated.\n2. The split between hourly and daily forecasts.\n3. Your average predicted demand.\n\nOpen it from the main menu to see the latest numbers.",
	},
	{
		keywords: []string{"predict", "prediction", "forecast", "demand"},
		response: "## Predictions\nRideWise produces two kinds of demand forecasts.\n1. Hourly forecasts estimate rides for a single hour, using weather, season and calendar inputs.\n2. Daily forecasts estimate total rides for a whole day.\n\nFill in the prediction form and the result is saved to your history automatically.",
	},
	{
		keywords: []string{"history", "past", "previous"},
		response: "## History\nYour last predictions are kept per account.\n1. Open the history view to browse them newest first.\n2. Filter by hourly or daily type.\n3. Each entry keeps the weather impact and peak status it was made with.",
	},
	{
		keywords: []string{"weather", "impact"},
		response: "Weather impact is derived from the weather code you select: clear conditions mean low impact, mist means medium, and rain or worse means high. Higher impact usually lowers predicted demand.",
	},
	{
		keywords: []string{"peak", "busy"},
		response: "Peak status reflects predicted volume: above 400 rides an hour counts as peak, above 200 as normal, and anything lower as off-peak.",
	},
	{
		keywords: []string{"voice", "speak", "listen", "microphone"},
		response: "## Voice\nYou can talk to me instead of typing.\n1. Tap the microphone button and ask your question.\n2. I read replies aloud one point at a time.\n3. Tap stop or just start typing to interrupt playback.",
	},
	{
		keywords: []string{"feature", "help", "what can you do", "how do"},
		response: "## What I can do\n1. Explain your demand forecasts and what drove them.\n2. Summarize your dashboard and prediction history.\n3. Guide you around the app by voice or text.",
	},
}

const cannedDefault = "I'm currently answering from built-in knowledge only. I can explain predictions, your dashboard, prediction history, or the voice controls. What would you like to know?"

func cannedResponse(message string) string {
	msg := strings.ToLower(message)
	for _, rule := range cannedRules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				return rule.response
			}
		}
	}
	return cannedDefault
}
