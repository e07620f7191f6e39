package conversation

import (
	"sync"
	"testing"

	"github.com/antoniostano/ridewise/internal/protocol"
	"github.com/antoniostano/ridewise/internal/voice"
)

type sendLog struct {
	mu   sync.Mutex
	msgs []any
	ok   bool
}

func newSendLog() *sendLog { return &sendLog{ok: true} }

func (l *sendLog) send(msg any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ok {
		return false
	}
	l.msgs = append(l.msgs, msg)
	return true
}

func (l *sendLog) all() []any {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]any, len(l.msgs))
	copy(out, l.msgs)
	return out
}

func TestSynthesisRelayRoundTrip(t *testing.T) {
	log := newSendLog()
	relay := newSynthesisRelay("s1", log.send)

	done := make(chan string, 1)
	relay.Speak(voice.Utterance{Content: "First point", Rate: 0.95, Locale: "en-US"}, voice.UtteranceEvents{
		OnEnd: func() { done <- "end" },
	})

	msgs := log.all()
	if len(msgs) != 1 {
		t.Fatalf("sent messages = %d, want 1", len(msgs))
	}
	speak, ok := msgs[0].(protocol.SpeakUtterance)
	if !ok {
		t.Fatalf("message type = %T, want protocol.SpeakUtterance", msgs[0])
	}
	if speak.Content != "First point" || speak.UtteranceID == "" || speak.Rate != 0.95 {
		t.Fatalf("unexpected speak request: %+v", speak)
	}

	relay.HandleEvent(protocol.SynthesisEvent{
		Type:        protocol.TypeSynthesisEvent,
		SessionID:   "s1",
		UtteranceID: speak.UtteranceID,
		Event:       protocol.SynthesisFinished,
	})
	select {
	case got := <-done:
		if got != "end" {
			t.Fatalf("callback = %q, want end", got)
		}
	default:
		t.Fatalf("OnEnd did not fire")
	}

	// A second event for the same utterance must be dropped.
	relay.HandleEvent(protocol.SynthesisEvent{UtteranceID: speak.UtteranceID, Event: protocol.SynthesisFinished})
	if len(done) != 0 {
		t.Fatalf("terminal event fired twice")
	}
}

func TestSynthesisRelayCancelAllDropsPending(t *testing.T) {
	log := newSendLog()
	relay := newSynthesisRelay("s1", log.send)

	fired := make(chan struct{}, 1)
	relay.Speak(voice.Utterance{Content: "doomed"}, voice.UtteranceEvents{
		OnEnd: func() { fired <- struct{}{} },
	})
	speak := log.all()[0].(protocol.SpeakUtterance)

	relay.CancelAll()
	msgs := log.all()
	if _, ok := msgs[len(msgs)-1].(protocol.CancelSpeech); !ok {
		t.Fatalf("last message = %T, want protocol.CancelSpeech", msgs[len(msgs)-1])
	}

	relay.HandleEvent(protocol.SynthesisEvent{UtteranceID: speak.UtteranceID, Event: protocol.SynthesisFinished})
	if len(fired) != 0 {
		t.Fatalf("cancelled utterance still fired OnEnd")
	}
}

func TestSynthesisRelayErrorCodeDefaults(t *testing.T) {
	log := newSendLog()
	relay := newSynthesisRelay("s1", log.send)

	codes := make(chan string, 1)
	relay.Speak(voice.Utterance{Content: "x"}, voice.UtteranceEvents{
		OnError: func(code string) { codes <- code },
	})
	speak := log.all()[0].(protocol.SpeakUtterance)

	relay.HandleEvent(protocol.SynthesisEvent{UtteranceID: speak.UtteranceID, Event: protocol.SynthesisError})
	select {
	case code := <-codes:
		if code != "synthesis-failed" {
			t.Fatalf("error code = %q, want synthesis-failed", code)
		}
	default:
		t.Fatalf("OnError did not fire")
	}
}

func TestRecognitionRelayRoundTrip(t *testing.T) {
	log := newSendLog()
	relay := newRecognitionRelay("s1", "en-US", log.send)

	results := make(chan string, 1)
	if err := relay.Start(voice.RecognitionEvents{
		OnResult: func(transcript string) { results <- transcript },
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	msgs := log.all()
	start, ok := msgs[0].(protocol.ListenStart)
	if !ok {
		t.Fatalf("message type = %T, want protocol.ListenStart", msgs[0])
	}
	if start.Locale != "en-US" {
		t.Fatalf("Locale = %q, want en-US", start.Locale)
	}

	relay.HandleEvent(protocol.RecognitionEvent{Event: protocol.RecognitionResult, Transcript: "hello world"})
	select {
	case got := <-results:
		if got != "hello world" {
			t.Fatalf("transcript = %q, want hello world", got)
		}
	default:
		t.Fatalf("OnResult did not fire")
	}

	// The session is terminal; later events must be dropped.
	relay.HandleEvent(protocol.RecognitionEvent{Event: protocol.RecognitionResult, Transcript: "late"})
	if len(results) != 0 {
		t.Fatalf("terminal session fired twice")
	}
}

func TestRecognitionRelayStopClearsSession(t *testing.T) {
	log := newSendLog()
	relay := newRecognitionRelay("s1", "en-US", log.send)

	fired := make(chan struct{}, 1)
	if err := relay.Start(voice.RecognitionEvents{
		OnEnd: func() { fired <- struct{}{} },
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	relay.Stop()

	msgs := log.all()
	if _, ok := msgs[len(msgs)-1].(protocol.ListenStop); !ok {
		t.Fatalf("last message = %T, want protocol.ListenStop", msgs[len(msgs)-1])
	}

	relay.HandleEvent(protocol.RecognitionEvent{Event: protocol.RecognitionEnd})
	if len(fired) != 0 {
		t.Fatalf("stopped session still fired OnEnd")
	}
}

func TestRecognitionRelayStartFailsWhenConnectionClosed(t *testing.T) {
	log := newSendLog()
	log.ok = false
	relay := newRecognitionRelay("s1", "en-US", log.send)

	if err := relay.Start(voice.RecognitionEvents{}); err == nil {
		t.Fatalf("Start() error = nil, want connection failure")
	}
}
