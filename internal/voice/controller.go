package voice

import (
	"sync"
	"time"
)

// Controller is the single entry point the rest of the application uses for
// voice. It composes the segmenting sequencer, the recognition controller and
// the lifecycle guard behind one facade, so callers never reach the
// capabilities directly.
type Controller struct {
	guard *LifecycleGuard
	seq   *Sequencer
	rec   *RecognitionController

	synth    Synthesizer
	recog    Recognizer
	notifier Notifier

	noSynthOnce sync.Once
	closeOnce   sync.Once
}

// Config wires a Controller to its capabilities and observers. Any nil
// callback is simply not invoked; zero durations fall back to defaults.
type Config struct {
	Locale          string
	SpeechRate      float64
	SegmentPause    time.Duration
	ErrorSkipPause  time.Duration
	TranscriptDelay time.Duration

	Notifier          Notifier
	OnTranscript      func(string)
	OnSpeakingChange  func(bool)
	OnListeningChange func(bool)
}

// NewController builds a voice controller over the given capabilities.
// Either capability may be nil; the corresponding operations then degrade
// gracefully (see Speak and ToggleListening).
func NewController(synth Synthesizer, recog Recognizer, cfg Config) *Controller {
	guard := NewLifecycleGuard()
	c := &Controller{
		guard:    guard,
		synth:    synth,
		recog:    recog,
		notifier: cfg.Notifier,
	}
	c.seq = NewSequencer(guard, synth, SequencerConfig{
		Rate:           cfg.SpeechRate,
		Locale:         cfg.Locale,
		SegmentPause:   cfg.SegmentPause,
		ErrorSkipPause: cfg.ErrorSkipPause,
		Notifier:       cfg.Notifier,
		OnSpeaking:     cfg.OnSpeakingChange,
	})
	c.rec = NewRecognitionController(guard, recog, RecognitionConfig{
		DispatchDelay: cfg.TranscriptDelay,
		Notifier:      cfg.Notifier,
		OnListening:   cfg.OnListeningChange,
		OnTranscript:  cfg.OnTranscript,
	})
	return c
}

// Speak replaces any in-progress playback with the given text. Without a
// synthesis capability it notifies the user once per session and otherwise
// does nothing.
func (c *Controller) Speak(text string) {
	if c.synth == nil {
		c.noSynthOnce.Do(func() {
			c.notify("Voice output is not supported here. Replies will appear as text only.")
		})
		return
	}
	c.seq.Speak(text)
}

// StopSpeaking cancels in-progress playback; a no-op when idle.
func (c *Controller) StopSpeaking() {
	c.seq.Stop()
}

// ToggleListening flips the recognition session on or off.
func (c *Controller) ToggleListening() error {
	return c.rec.Toggle()
}

// StopListening ends the current recognition session; a no-op when idle.
func (c *Controller) StopListening() {
	c.rec.StopListening()
}

func (c *Controller) IsSpeaking() bool  { return c.seq.IsSpeaking() }
func (c *Controller) IsListening() bool { return c.rec.IsListening() }

// HasSynthesis reports whether a speech-output capability is wired.
func (c *Controller) HasSynthesis() bool { return c.synth != nil }

// HasRecognition reports whether a speech-input capability is wired.
func (c *Controller) HasRecognition() bool { return c.recog != nil }

// SetHidden tells the controller the client surface went invisible or came
// back. Going hidden forces both playback and listening to stop so audio
// never continues behind a backgrounded page; becoming visible again does
// not resume anything.
func (c *Controller) SetHidden(hidden bool) {
	if !hidden {
		return
	}
	c.seq.Stop()
	c.rec.StopListening()
}

// Close tears the session down: playback and listening stop, all pending
// timers are cancelled, and every later event or continuation becomes a
// silent no-op. Idempotent.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.seq.Stop()
		c.rec.StopListening()
		c.guard.MarkTornDown()
	})
}

func (c *Controller) notify(text string) {
	if c.notifier != nil {
		c.notifier.Notify(text)
	}
}
