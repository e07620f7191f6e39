package voice

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedRecognizer hands each session's event callbacks to the test.
type scriptedRecognizer struct {
	mu       sync.Mutex
	sessions []RecognitionEvents
	stops    int
	startErr error
}

func (r *scriptedRecognizer) Start(ev RecognitionEvents) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.sessions = append(r.sessions, ev)
	return nil
}

func (r *scriptedRecognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
}

func (r *scriptedRecognizer) session(i int) RecognitionEvents {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[i]
}

func (r *scriptedRecognizer) stopCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

type transcriptLog struct {
	mu   sync.Mutex
	seen []string
}

func (l *transcriptLog) record(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, s)
}

func (l *transcriptLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.seen))
	copy(out, l.seen)
	return out
}

func newTestRecognition(rec Recognizer, notifier Notifier, log *transcriptLog) (*RecognitionController, *LifecycleGuard) {
	g := NewLifecycleGuard()
	c := NewRecognitionController(g, rec, RecognitionConfig{
		DispatchDelay: 2 * time.Millisecond,
		Notifier:      notifier,
		OnTranscript:  log.record,
	})
	return c, g
}

func TestRecognitionToggleRoundTrip(t *testing.T) {
	rec := &scriptedRecognizer{}
	log := &transcriptLog{}
	c, _ := newTestRecognition(rec, nil, log)

	if err := c.Toggle(); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !c.IsListening() {
		t.Fatalf("IsListening() = false after Toggle")
	}

	rec.session(0).OnResult("  hello world  ")
	if c.IsListening() {
		t.Fatalf("IsListening() = true after result")
	}
	waitFor(t, time.Second, func() bool { return len(log.all()) == 1 })
	if got := log.all()[0]; got != "hello world" {
		t.Fatalf("transcript = %q, want %q", got, "hello world")
	}
}

func TestRecognitionToggleWhileListeningStops(t *testing.T) {
	rec := &scriptedRecognizer{}
	log := &transcriptLog{}
	c, _ := newTestRecognition(rec, nil, log)

	if err := c.Toggle(); err != nil {
		t.Fatalf("first Toggle() error = %v", err)
	}
	if err := c.Toggle(); err != nil {
		t.Fatalf("second Toggle() error = %v", err)
	}
	if c.IsListening() {
		t.Fatalf("IsListening() = true after toggling off")
	}
	if got := rec.stopCount(); got != 1 {
		t.Fatalf("recognizer stops = %d, want 1", got)
	}

	// A late result from the stopped session must be dropped.
	rec.session(0).OnResult("stale words")
	time.Sleep(20 * time.Millisecond)
	if got := log.all(); len(got) != 0 {
		t.Fatalf("transcripts from stale session = %q, want none", got)
	}
}

func TestRecognitionUnavailableWithoutCapability(t *testing.T) {
	c, _ := newTestRecognition(nil, nil, &transcriptLog{})
	if err := c.Toggle(); !errors.Is(err, ErrRecognitionUnavailable) {
		t.Fatalf("Toggle() error = %v, want ErrRecognitionUnavailable", err)
	}
	if c.IsListening() {
		t.Fatalf("IsListening() = true without capability")
	}
}

func TestRecognitionErrorMapsToNotice(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{code: "no-speech", want: "No speech was detected. Please try again."},
		{code: "audio-capture", want: "No microphone was found, or it is unavailable."},
		{code: "not-allowed", want: "Microphone permission was denied. Enable it in your browser settings."},
		{code: "service-not-allowed", want: "Microphone permission was denied. Enable it in your browser settings."},
		{code: "network", want: "A network error interrupted speech recognition."},
		{code: "aborted", want: "Speech recognition failed. Please try again."},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.code, func(t *testing.T) {
			rec := &scriptedRecognizer{}
			notices := &noticeLog{}
			c, _ := newTestRecognition(rec, notices, &transcriptLog{})

			if err := c.Toggle(); err != nil {
				t.Fatalf("Toggle() error = %v", err)
			}
			rec.session(0).OnError(tc.code)
			if c.IsListening() {
				t.Fatalf("IsListening() = true after error")
			}
			got := notices.all()
			if len(got) != 1 || got[0] != tc.want {
				t.Fatalf("notices = %q, want [%q]", got, tc.want)
			}
		})
	}
}

func TestRecognitionEndWithoutResultIsSilent(t *testing.T) {
	rec := &scriptedRecognizer{}
	notices := &noticeLog{}
	log := &transcriptLog{}
	c, _ := newTestRecognition(rec, notices, log)

	if err := c.Toggle(); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	rec.session(0).OnEnd()
	if c.IsListening() {
		t.Fatalf("IsListening() = true after end")
	}
	if got := notices.all(); len(got) != 0 {
		t.Fatalf("notices = %q, want none", got)
	}
	if got := log.all(); len(got) != 0 {
		t.Fatalf("transcripts = %q, want none", got)
	}
}

func TestRecognitionEmptyTranscriptDropped(t *testing.T) {
	rec := &scriptedRecognizer{}
	log := &transcriptLog{}
	c, _ := newTestRecognition(rec, nil, log)

	if err := c.Toggle(); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	rec.session(0).OnResult("   ")
	time.Sleep(20 * time.Millisecond)
	if got := log.all(); len(got) != 0 {
		t.Fatalf("transcripts = %q, want none", got)
	}
}

func TestRecognitionStartErrorResetsState(t *testing.T) {
	rec := &scriptedRecognizer{startErr: errors.New("boom")}
	c, _ := newTestRecognition(rec, nil, &transcriptLog{})

	if err := c.Toggle(); err == nil {
		t.Fatalf("Toggle() error = nil, want start failure")
	}
	if c.IsListening() {
		t.Fatalf("IsListening() = true after failed start")
	}

	rec.mu.Lock()
	rec.startErr = nil
	rec.mu.Unlock()
	if err := c.Toggle(); err != nil {
		t.Fatalf("Toggle() after recovery error = %v", err)
	}
	if !c.IsListening() {
		t.Fatalf("IsListening() = false after recovery")
	}
}

func TestRecognitionTeardownDropsTranscriptDispatch(t *testing.T) {
	rec := &scriptedRecognizer{}
	log := &transcriptLog{}
	g := NewLifecycleGuard()
	c := NewRecognitionController(g, rec, RecognitionConfig{
		DispatchDelay: 50 * time.Millisecond,
		OnTranscript:  log.record,
	})

	if err := c.Toggle(); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	rec.session(0).OnResult("hello")
	g.MarkTornDown()
	time.Sleep(100 * time.Millisecond)
	if got := log.all(); len(got) != 0 {
		t.Fatalf("transcripts after teardown = %q, want none", got)
	}
}
