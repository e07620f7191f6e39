package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/antoniostano/ridewise/internal/assistant"
	"github.com/antoniostano/ridewise/internal/config"
	"github.com/antoniostano/ridewise/internal/memory"
	"github.com/antoniostano/ridewise/internal/protocol"
	"github.com/antoniostano/ridewise/internal/session"
)

type fixedAdapter struct {
	text string
}

func (a fixedAdapter) Generate(_ context.Context, _ assistant.Request) (assistant.Reply, error) {
	return assistant.Reply{Text: a.text, Source: assistant.SourceModel}, nil
}

func (fixedAdapter) Available() bool { return true }

type runnerHarness struct {
	t        *testing.T
	sess     *session.Session
	inbound  chan any
	outbound chan any
	done     chan error
	cancel   context.CancelFunc
}

func startRunner(t *testing.T, replyText string) *runnerHarness {
	t.Helper()
	cfg := config.Config{
		VoiceCapability:      "browser",
		VoiceSpeechRate:      0.95,
		VoiceLocale:          "en-US",
		VoiceSegmentPause:    5 * time.Millisecond,
		VoiceErrorSkipPause:  2 * time.Millisecond,
		VoiceTranscriptDelay: 2 * time.Millisecond,
	}
	sessions := session.NewManager(time.Minute)
	sess := sessions.Create("u1", "en-US")
	runner := NewRunner(cfg, sessions, memory.NewInMemoryStore(), fixedAdapter{text: replyText}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	h := &runnerHarness{
		t:        t,
		sess:     sess,
		inbound:  make(chan any, 16),
		outbound: make(chan any, 64),
		done:     make(chan error, 1),
		cancel:   cancel,
	}
	go func() {
		h.done <- runner.RunConnection(ctx, sess, h.inbound, h.outbound)
	}()
	t.Cleanup(func() {
		cancel()
		close(h.inbound)
	})
	return h
}

// expect reads outbound until a message passes match, skipping voice_state
// updates and notices along the way.
func expect[T any](h *runnerHarness, match func(T) bool) T {
	h.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-h.outbound:
			if typed, ok := msg.(T); ok && match(typed) {
				return typed
			}
			switch msg.(type) {
			case protocol.VoiceState, protocol.Notice:
			default:
				if _, ok := msg.(T); !ok {
					h.t.Logf("skipping message %T: %+v", msg, msg)
				}
			}
		case <-deadline:
			h.t.Fatalf("timed out waiting for message")
		}
	}
}

func any_[T any](T) bool { return true }

func TestRunnerTypedQueryGetsTextOnlyReply(t *testing.T) {
	h := startRunner(t, "A short answer.")

	h.inbound <- protocol.ClientQuery{Type: protocol.TypeClientQuery, SessionID: h.sess.ID, Text: "what is demand?", Source: "typed"}

	echo := expect[protocol.UserMessage](h, any_)
	if echo.Text != "what is demand?" || echo.Source != "typed" {
		t.Fatalf("unexpected user echo: %+v", echo)
	}

	reply := expect[protocol.AssistantReply](h, any_)
	if reply.Text != "A short answer." || reply.Spoken {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	// Text-only turns must not trigger playback.
	select {
	case msg := <-h.outbound:
		if _, ok := msg.(protocol.SpeakUtterance); ok {
			t.Fatalf("typed query triggered speech: %+v", msg)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunnerVoiceQueryIsSpokenSegmentBySegment(t *testing.T) {
	h := startRunner(t, "## Summary\n1. First point\n2. Second point")

	h.inbound <- protocol.ClientQuery{Type: protocol.TypeClientQuery, SessionID: h.sess.ID, Text: "summarize", Source: "voice"}

	reply := expect[protocol.AssistantReply](h, any_)
	if !reply.Spoken {
		t.Fatalf("voice reply not marked spoken: %+v", reply)
	}

	first := expect[protocol.SpeakUtterance](h, any_)
	if first.Content != "Summary" {
		t.Fatalf("first utterance = %q, want Summary", first.Content)
	}
	if first.Rate != 0.95 || first.Locale != "en-US" {
		t.Fatalf("prosody = %v %q, want 0.95 en-US", first.Rate, first.Locale)
	}

	h.inbound <- protocol.SynthesisEvent{Type: protocol.TypeSynthesisEvent, SessionID: h.sess.ID, UtteranceID: first.UtteranceID, Event: protocol.SynthesisFinished}
	second := expect[protocol.SpeakUtterance](h, any_)
	if second.Content != "First point" {
		t.Fatalf("second utterance = %q, want First point", second.Content)
	}
}

func TestRunnerToggleListenRoundTrip(t *testing.T) {
	h := startRunner(t, "You said something.")

	h.inbound <- protocol.ClientControl{Type: protocol.TypeClientControl, SessionID: h.sess.ID, Action: protocol.ActionToggleListen}
	start := expect[protocol.ListenStart](h, any_)
	if start.Locale != "en-US" {
		t.Fatalf("ListenStart.Locale = %q, want en-US", start.Locale)
	}

	h.inbound <- protocol.RecognitionEvent{Type: protocol.TypeRecognitionEvent, SessionID: h.sess.ID, Event: protocol.RecognitionResult, Transcript: "show my history"}

	echo := expect[protocol.UserMessage](h, any_)
	if echo.Text != "show my history" || echo.Source != "voice" {
		t.Fatalf("unexpected transcript echo: %+v", echo)
	}
}

func TestRunnerStopSpeakingCancelsPlayback(t *testing.T) {
	h := startRunner(t, "1. one\n2. two\n3. three")

	h.inbound <- protocol.ClientQuery{Type: protocol.TypeClientQuery, SessionID: h.sess.ID, Text: "go", Source: "voice"}
	expect[protocol.SpeakUtterance](h, any_)

	h.inbound <- protocol.ClientControl{Type: protocol.TypeClientControl, SessionID: h.sess.ID, Action: protocol.ActionStopSpeaking}
	expect[protocol.CancelSpeech](h, any_)

	state := expect[protocol.VoiceState](h, func(s protocol.VoiceState) bool { return !s.Speaking })
	if state.Speaking {
		t.Fatalf("still speaking after stop: %+v", state)
	}
}

func TestRunnerVisibilityHiddenStopsVoice(t *testing.T) {
	h := startRunner(t, "1. one\n2. two")

	h.inbound <- protocol.ClientQuery{Type: protocol.TypeClientQuery, SessionID: h.sess.ID, Text: "go", Source: "voice"}
	expect[protocol.SpeakUtterance](h, any_)

	h.inbound <- protocol.ClientControl{Type: protocol.TypeClientControl, SessionID: h.sess.ID, Action: protocol.ActionVisibilityHidden}
	expect[protocol.CancelSpeech](h, any_)
	expect[protocol.VoiceState](h, func(s protocol.VoiceState) bool { return !s.Speaking && !s.Listening })
}

func TestRunnerRedactsPIIBeforeEcho(t *testing.T) {
	h := startRunner(t, "Noted.")

	h.inbound <- protocol.ClientQuery{Type: protocol.TypeClientQuery, SessionID: h.sess.ID, Text: "email me at rider@example.com", Source: "typed"}
	echo := expect[protocol.UserMessage](h, any_)
	if echo.Text != "email me at [REDACTED_EMAIL]" {
		t.Fatalf("echo = %q, want redacted email", echo.Text)
	}
}

func TestRunnerReturnsWhenInboundCloses(t *testing.T) {
	cfg := config.Config{VoiceCapability: "loopback", VoiceLocale: "en-US"}
	sessions := session.NewManager(time.Minute)
	sess := sessions.Create("u1", "en-US")
	runner := NewRunner(cfg, sessions, memory.NewInMemoryStore(), fixedAdapter{text: "x"}, nil)

	inbound := make(chan any)
	outbound := make(chan any, 16)
	done := make(chan error, 1)
	go func() {
		done <- runner.RunConnection(context.Background(), sess, inbound, outbound)
	}()

	close(inbound)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunConnection() error = %v, want nil on inbound close", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("RunConnection did not return after inbound close")
	}
}
