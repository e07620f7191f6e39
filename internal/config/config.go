package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the voice chat service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	GeminiAPIKey        string
	GeminiModel         string
	GeminiFallbackModel string

	DatabaseURL string

	VoiceLocale          string
	VoiceSpeechRate      float64
	VoiceSegmentPause    time.Duration
	VoiceErrorSkipPause  time.Duration
	VoiceTranscriptDelay time.Duration
	// VoiceCapability selects "browser" (Web Speech over the session
	// websocket) or "loopback" (in-process simulation for dev).
	VoiceCapability string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "ridewise"),
		AllowAnyOrigin:           false,
		GeminiAPIKey:             stringsTrimSpace("GEMINI_API_KEY"),
		GeminiModel:              envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiFallbackModel:      envOrDefault("GEMINI_FALLBACK_MODEL", "gemini-2.0-flash"),
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		VoiceLocale:              envOrDefault("VOICE_LOCALE", "en-US"),
		// Slightly below natural pace reads better for data-heavy replies.
		VoiceSpeechRate:          0.95,
		VoiceSegmentPause:        250 * time.Millisecond,
		VoiceErrorSkipPause:      100 * time.Millisecond,
		VoiceTranscriptDelay:     100 * time.Millisecond,
		VoiceCapability:          envOrDefault("VOICE_CAPABILITY", "browser"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 2 * time.Minute,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.VoiceSpeechRate, err = floatFromEnv("VOICE_SPEECH_RATE", cfg.VoiceSpeechRate)
	if err != nil {
		return Config{}, err
	}
	cfg.VoiceSegmentPause, err = durationFromEnv("VOICE_SEGMENT_PAUSE", cfg.VoiceSegmentPause)
	if err != nil {
		return Config{}, err
	}
	cfg.VoiceErrorSkipPause, err = durationFromEnv("VOICE_ERROR_SKIP_PAUSE", cfg.VoiceErrorSkipPause)
	if err != nil {
		return Config{}, err
	}
	cfg.VoiceTranscriptDelay, err = durationFromEnv("VOICE_TRANSCRIPT_DELAY", cfg.VoiceTranscriptDelay)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.VoiceSpeechRate <= 0 || cfg.VoiceSpeechRate > 2 {
		return Config{}, fmt.Errorf("VOICE_SPEECH_RATE must be in (0, 2]")
	}
	if cfg.VoiceSegmentPause < cfg.VoiceErrorSkipPause {
		return Config{}, fmt.Errorf("VOICE_SEGMENT_PAUSE must be at least VOICE_ERROR_SKIP_PAUSE")
	}
	switch cfg.VoiceCapability {
	case "browser", "loopback":
	default:
		return Config{}, fmt.Errorf("VOICE_CAPABILITY must be browser or loopback")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
