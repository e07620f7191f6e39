package voice

import "errors"

// The platform speech primitives are external capabilities: the controller
// orchestrates them through these contracts and never touches audio itself.
// In production they are backed by the browser's Web Speech API through the
// session websocket; tests and the loopback dev mode use in-process fakes.

// Utterance is one request to the speech-output capability.
type Utterance struct {
	Content string
	Rate    float64
	Pitch   float64
	Volume  float64
	Locale  string
}

// UtteranceEvents receives the lifecycle of a single utterance. Callbacks
// may fire on any goroutine; receivers are responsible for their own
// staleness checks.
type UtteranceEvents struct {
	OnStart func()
	OnEnd   func()
	OnError func(code string)
}

// Synthesizer is the speech-output capability. Speak must not block on
// audio; CancelAll discards the current and any queued utterance.
type Synthesizer interface {
	Speak(u Utterance, ev UtteranceEvents)
	CancelAll()
}

// RecognitionEvents receives the outcome of one single-shot recognition
// session. Exactly one of the three fires per session.
type RecognitionEvents struct {
	OnResult func(transcript string)
	OnError  func(code string)
	OnEnd    func()
}

// Recognizer is the speech-input capability. Start opens one single-shot,
// non-interim recognition session; Stop ends it early.
type Recognizer interface {
	Start(ev RecognitionEvents) error
	Stop()
}

// Notifier surfaces user-visible notices (toasts) from the voice pipeline.
type Notifier interface {
	Notify(text string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(string)

func (f NotifierFunc) Notify(text string) { f(text) }

var (
	// ErrSynthesisUnavailable means the platform offers no speech output.
	ErrSynthesisUnavailable = errors.New("speech synthesis capability unavailable")
	// ErrRecognitionUnavailable means the platform offers no speech input.
	ErrRecognitionUnavailable = errors.New("speech recognition capability unavailable")
)

// IsCancellationCode reports whether a synthesis error code is the expected
// aftermath of a deliberate stop or a superseding speak request. Such errors
// are never surfaced to the user.
func IsCancellationCode(code string) bool {
	switch code {
	case "canceled", "cancelled", "interrupted":
		return true
	default:
		return false
	}
}

// recognitionNoticeFor maps recognition error categories to user-facing
// messages. Codes follow the Web Speech SpeechRecognitionErrorEvent names.
func recognitionNoticeFor(code string) string {
	switch code {
	case "no-speech":
		return "No speech was detected. Please try again."
	case "audio-capture":
		return "No microphone was found, or it is unavailable."
	case "not-allowed", "service-not-allowed":
		return "Microphone permission was denied. Enable it in your browser settings."
	case "network":
		return "A network error interrupted speech recognition."
	default:
		return "Speech recognition failed. Please try again."
	}
}
