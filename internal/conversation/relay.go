package conversation

import (
	"sync"

	"github.com/google/uuid"

	"github.com/antoniostano/ridewise/internal/protocol"
	"github.com/antoniostano/ridewise/internal/voice"
)

// The relays project the voice capability contracts onto the session
// websocket: the browser owns the actual Web Speech engines and reports
// lifecycle events back, keyed by utterance id.

// synthesisRelay implements voice.Synthesizer by asking the client to speak.
type synthesisRelay struct {
	sessionID string
	send      func(msg any) bool

	mu      sync.Mutex
	pending map[string]voice.UtteranceEvents
}

func newSynthesisRelay(sessionID string, send func(msg any) bool) *synthesisRelay {
	return &synthesisRelay{
		sessionID: sessionID,
		send:      send,
		pending:   make(map[string]voice.UtteranceEvents),
	}
}

func (r *synthesisRelay) Speak(u voice.Utterance, ev voice.UtteranceEvents) {
	id := uuid.NewString()
	r.mu.Lock()
	r.pending[id] = ev
	r.mu.Unlock()

	ok := r.send(protocol.SpeakUtterance{
		Type:        protocol.TypeSpeakUtterance,
		SessionID:   r.sessionID,
		UtteranceID: id,
		Content:     u.Content,
		Rate:        u.Rate,
		Pitch:       u.Pitch,
		Volume:      u.Volume,
		Locale:      u.Locale,
	})
	if !ok {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}
}

func (r *synthesisRelay) CancelAll() {
	r.mu.Lock()
	r.pending = make(map[string]voice.UtteranceEvents)
	r.mu.Unlock()
	r.send(protocol.CancelSpeech{Type: protocol.TypeCancelSpeech, SessionID: r.sessionID})
}

// HandleEvent routes one client-reported synthesis outcome to the utterance
// that caused it. Events for cancelled or unknown utterances are dropped.
func (r *synthesisRelay) HandleEvent(msg protocol.SynthesisEvent) {
	r.mu.Lock()
	ev, ok := r.pending[msg.UtteranceID]
	if ok && msg.Event != protocol.SynthesisStarted {
		delete(r.pending, msg.UtteranceID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	switch msg.Event {
	case protocol.SynthesisStarted:
		if ev.OnStart != nil {
			ev.OnStart()
		}
	case protocol.SynthesisFinished:
		if ev.OnEnd != nil {
			ev.OnEnd()
		}
	case protocol.SynthesisError:
		if ev.OnError != nil {
			code := msg.Code
			if code == "" {
				code = "synthesis-failed"
			}
			ev.OnError(code)
		}
	}
}

// recognitionRelay implements voice.Recognizer by asking the client to open
// a single-shot recognition session.
type recognitionRelay struct {
	sessionID string
	locale    string
	send      func(msg any) bool

	mu     sync.Mutex
	active *voice.RecognitionEvents
}

func newRecognitionRelay(sessionID, locale string, send func(msg any) bool) *recognitionRelay {
	return &recognitionRelay{sessionID: sessionID, locale: locale, send: send}
}

func (r *recognitionRelay) Start(ev voice.RecognitionEvents) error {
	r.mu.Lock()
	r.active = &ev
	r.mu.Unlock()

	if !r.send(protocol.ListenStart{Type: protocol.TypeListenStart, SessionID: r.sessionID, Locale: r.locale}) {
		r.mu.Lock()
		r.active = nil
		r.mu.Unlock()
		return errConnectionClosed
	}
	return nil
}

func (r *recognitionRelay) Stop() {
	r.mu.Lock()
	r.active = nil
	r.mu.Unlock()
	r.send(protocol.ListenStop{Type: protocol.TypeListenStop, SessionID: r.sessionID})
}

// HandleEvent routes one client-reported recognition outcome to the session
// that opened it. All three kinds are terminal for the relay.
func (r *recognitionRelay) HandleEvent(msg protocol.RecognitionEvent) {
	r.mu.Lock()
	ev := r.active
	r.active = nil
	r.mu.Unlock()
	if ev == nil {
		return
	}

	switch msg.Event {
	case protocol.RecognitionResult:
		if ev.OnResult != nil {
			ev.OnResult(msg.Transcript)
		}
	case protocol.RecognitionError:
		if ev.OnError != nil {
			code := msg.Code
			if code == "" {
				code = "recognition-failed"
			}
			ev.OnError(code)
		}
	case protocol.RecognitionEnd:
		if ev.OnEnd != nil {
			ev.OnEnd()
		}
	}
}
