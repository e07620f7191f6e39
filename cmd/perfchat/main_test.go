package main

import (
	"testing"
	"time"
)

func TestWSURLForSession(t *testing.T) {
	cases := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{name: "http", baseURL: "http://127.0.0.1:8080", want: "ws://127.0.0.1:8080/v1/chat/session/ws?session_id=s-1"},
		{name: "https", baseURL: "https://ridewise.example.com", want: "wss://ridewise.example.com/v1/chat/session/ws?session_id=s-1"},
		{name: "trailing slash", baseURL: "http://localhost:9000/", want: "ws://localhost:9000/v1/chat/session/ws?session_id=s-1"},
		{name: "bad scheme", baseURL: "ftp://localhost", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := wsURLForSession(tc.baseURL, "s-1")
			if tc.wantErr {
				if err == nil {
					t.Fatalf("wsURLForSession(%q) error = nil, want error", tc.baseURL)
				}
				return
			}
			if err != nil {
				t.Fatalf("wsURLForSession(%q) error = %v", tc.baseURL, err)
			}
			if got != tc.want {
				t.Fatalf("wsURLForSession(%q) = %q, want %q", tc.baseURL, got, tc.want)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond,
	}
	if got := percentile(sorted, 0.50); got != 300*time.Millisecond {
		t.Fatalf("percentile(0.50) = %s, want 300ms", got)
	}
	if got := percentile(sorted, 0.95); got != 400*time.Millisecond {
		t.Fatalf("percentile(0.95) = %s, want 400ms", got)
	}
	if got := percentile(nil, 0.50); got != 0 {
		t.Fatalf("percentile(nil) = %s, want 0", got)
	}
}
