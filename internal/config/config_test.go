package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9090")
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Fatalf("GeminiModel = %q, want %q", cfg.GeminiModel, "gemini-2.5-flash")
	}
	if cfg.VoiceLocale != "en-US" {
		t.Fatalf("VoiceLocale = %q, want %q", cfg.VoiceLocale, "en-US")
	}
	if cfg.VoiceSpeechRate != 0.95 {
		t.Fatalf("VoiceSpeechRate = %v, want 0.95", cfg.VoiceSpeechRate)
	}
	if cfg.VoiceSegmentPause != 250*time.Millisecond {
		t.Fatalf("VoiceSegmentPause = %v, want 250ms", cfg.VoiceSegmentPause)
	}
	if cfg.VoiceErrorSkipPause != 100*time.Millisecond {
		t.Fatalf("VoiceErrorSkipPause = %v, want 100ms", cfg.VoiceErrorSkipPause)
	}
	if cfg.VoiceCapability != "browser" {
		t.Fatalf("VoiceCapability = %q, want %q", cfg.VoiceCapability, "browser")
	}
}

func TestLoadOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("VOICE_SPEECH_RATE", "1.1")
	t.Setenv("VOICE_SEGMENT_PAUSE", "400ms")
	t.Setenv("VOICE_CAPABILITY", "loopback")
	t.Setenv("GEMINI_API_KEY", "  key-with-space \n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VoiceSpeechRate != 1.1 {
		t.Fatalf("VoiceSpeechRate = %v, want 1.1", cfg.VoiceSpeechRate)
	}
	if cfg.VoiceSegmentPause != 400*time.Millisecond {
		t.Fatalf("VoiceSegmentPause = %v, want 400ms", cfg.VoiceSegmentPause)
	}
	if cfg.VoiceCapability != "loopback" {
		t.Fatalf("VoiceCapability = %q, want %q", cfg.VoiceCapability, "loopback")
	}
	if cfg.GeminiAPIKey != "key-with-space" {
		t.Fatalf("GeminiAPIKey = %q, want trimmed value", cfg.GeminiAPIKey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad capability", key: "VOICE_CAPABILITY", value: "telepathy"},
		{name: "zero speech rate", key: "VOICE_SPEECH_RATE", value: "0"},
		{name: "segment pause below skip pause", key: "VOICE_SEGMENT_PAUSE", value: "10ms"},
		{name: "tiny inactivity timeout", key: "APP_SESSION_INACTIVITY_TIMEOUT", value: "1s"},
		{name: "bad bool", key: "APP_ALLOW_ANY_ORIGIN", value: "maybe"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() error = nil, want failure for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"GEMINI_API_KEY",
		"GEMINI_MODEL",
		"GEMINI_FALLBACK_MODEL",
		"DATABASE_URL",
		"VOICE_LOCALE",
		"VOICE_SPEECH_RATE",
		"VOICE_SEGMENT_PAUSE",
		"VOICE_ERROR_SKIP_PAUSE",
		"VOICE_TRANSCRIPT_DELAY",
		"VOICE_CAPABILITY",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
