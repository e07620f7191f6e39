package voice

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// RecognitionController wraps one single-shot recognition session at a time.
// Recognition events from a session that has been toggled off (or superseded)
// are identified by generation and dropped.
type RecognitionController struct {
	guard    *LifecycleGuard
	rec      Recognizer
	notifier Notifier

	dispatchDelay time.Duration
	onListening   func(bool)
	onTranscript  func(string)

	mu         sync.Mutex
	generation uint64
	active     bool

	listening atomic.Bool
}

type RecognitionConfig struct {
	DispatchDelay time.Duration
	Notifier      Notifier
	OnListening   func(bool)
	OnTranscript  func(string)
}

const defaultDispatchDelay = 100 * time.Millisecond

func NewRecognitionController(guard *LifecycleGuard, rec Recognizer, cfg RecognitionConfig) *RecognitionController {
	if cfg.DispatchDelay <= 0 {
		cfg.DispatchDelay = defaultDispatchDelay
	}
	return &RecognitionController{
		guard:         guard,
		rec:           rec,
		notifier:      cfg.Notifier,
		dispatchDelay: cfg.DispatchDelay,
		onListening:   cfg.OnListening,
		onTranscript:  cfg.OnTranscript,
	}
}

// Toggle starts a recognition session when idle and stops the current one
// when listening. Returns ErrRecognitionUnavailable when the platform offers
// no recognition capability; state is unchanged in that case.
func (c *RecognitionController) Toggle() error {
	if c.rec == nil {
		return ErrRecognitionUnavailable
	}
	if !c.guard.Live() {
		return nil
	}

	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		c.StopListening()
		return nil
	}
	c.generation++
	gen := c.generation
	c.active = true
	c.mu.Unlock()

	err := c.rec.Start(RecognitionEvents{
		OnResult: func(transcript string) { c.handleResult(gen, transcript) },
		OnError:  func(code string) { c.handleError(gen, code) },
		OnEnd:    func() { c.handleEnd(gen) },
	})
	if err != nil {
		c.mu.Lock()
		if c.generation == gen {
			c.active = false
		}
		c.mu.Unlock()
		c.setListening(false)
		return err
	}
	c.setListening(true)
	return nil
}

// StopListening ends the current recognition session; a no-op when idle.
func (c *RecognitionController) StopListening() {
	if c.rec == nil {
		return
	}
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.generation++
	c.active = false
	c.mu.Unlock()

	c.rec.Stop()
	c.setListening(false)
}

// IsListening reports whether a recognition session is active.
func (c *RecognitionController) IsListening() bool {
	return c.listening.Load()
}

func (c *RecognitionController) handleResult(gen uint64, transcript string) {
	if !c.settle(gen) {
		return
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return
	}
	// Short dispatch delay lets the listening indicator settle before the
	// transcript lands in the conversation.
	c.guard.Schedule(c.dispatchDelay, func() {
		if c.onTranscript != nil {
			c.onTranscript(transcript)
		}
	})
}

func (c *RecognitionController) handleError(gen uint64, code string) {
	if !c.settle(gen) {
		return
	}
	if c.notifier != nil {
		c.notifier.Notify(recognitionNoticeFor(code))
	}
}

func (c *RecognitionController) handleEnd(gen uint64) {
	// Session ended without result or error; return to idle silently.
	c.settle(gen)
}

// settle transitions the session back to idle if the event belongs to the
// current generation and the session is still live. Reports whether the
// event should be acted on.
func (c *RecognitionController) settle(gen uint64) bool {
	if !c.guard.Live() {
		return false
	}
	c.mu.Lock()
	if gen != c.generation || !c.active {
		c.mu.Unlock()
		return false
	}
	c.active = false
	c.mu.Unlock()
	c.setListening(false)
	return true
}

func (c *RecognitionController) setListening(v bool) {
	if c.listening.Swap(v) == v {
		return
	}
	if c.onListening != nil {
		c.onListening(v)
	}
}
