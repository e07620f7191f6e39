package voice

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Sequencer drives one-segment-at-a-time speech output. A generation counter
// decides races: every continuation (utterance event or pause timer) carries
// the generation it was created under and no-ops once a newer Speak or Stop
// has moved the counter on. An index comparison alone would not be enough --
// a cancelled sequence could be resurrected by a late callback landing on a
// coincidentally matching cursor.
type Sequencer struct {
	guard    *LifecycleGuard
	synth    Synthesizer
	notifier Notifier

	rate           float64
	locale         string
	segmentPause   time.Duration
	errorSkipPause time.Duration
	onSpeaking     func(bool)

	mu         sync.Mutex
	generation uint64
	segments   []string
	cursor     int
	active     bool
	pending    *ScheduledCall

	speaking atomic.Bool
}

// SequencerConfig carries the fixed prosody and pause settings for one
// session. Zero values fall back to defaults.
type SequencerConfig struct {
	Rate           float64
	Locale         string
	SegmentPause   time.Duration
	ErrorSkipPause time.Duration
	Notifier       Notifier
	OnSpeaking     func(bool)
}

const (
	defaultSpeechRate     = 0.95
	defaultLocale         = "en-US"
	defaultSegmentPause   = 250 * time.Millisecond
	defaultErrorSkipPause = 100 * time.Millisecond
)

func NewSequencer(guard *LifecycleGuard, synth Synthesizer, cfg SequencerConfig) *Sequencer {
	if cfg.Rate <= 0 {
		cfg.Rate = defaultSpeechRate
	}
	if cfg.Locale == "" {
		cfg.Locale = defaultLocale
	}
	if cfg.SegmentPause <= 0 {
		cfg.SegmentPause = defaultSegmentPause
	}
	if cfg.ErrorSkipPause <= 0 {
		cfg.ErrorSkipPause = defaultErrorSkipPause
	}
	return &Sequencer{
		guard:          guard,
		synth:          synth,
		notifier:       cfg.Notifier,
		rate:           cfg.Rate,
		locale:         cfg.Locale,
		segmentPause:   cfg.SegmentPause,
		errorSkipPause: cfg.ErrorSkipPause,
		onSpeaking:     cfg.OnSpeaking,
	}
}

// Speak cancels any in-progress playback, segments text and begins
// sequential output. Returns immediately; playback unfolds through
// capability events and pause timers.
func (s *Sequencer) Speak(text string) {
	if s.synth == nil || !s.guard.Live() {
		return
	}
	segs := SegmentText(text)
	if len(segs) == 1 && strings.TrimSpace(segs[0]) == "" {
		s.Stop()
		return
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.segments = segs
	s.cursor = 0
	s.active = true
	s.cancelPendingLocked()
	s.mu.Unlock()

	// Discard whatever the capability is still playing or has queued;
	// its cancellation error, if any, is stale by generation already.
	s.synth.CancelAll()
	s.setSpeaking(true)
	s.speakCursor(gen)
}

// Stop cancels in-progress playback immediately: pending pause timers are
// cleared, the capability discards its current utterance, and no further
// segment advances occur.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	s.generation++
	s.active = false
	s.segments = nil
	s.cursor = 0
	s.cancelPendingLocked()
	s.mu.Unlock()

	if s.synth != nil {
		s.synth.CancelAll()
	}
	s.setSpeaking(false)
}

// IsSpeaking reports whether a playback session is active.
func (s *Sequencer) IsSpeaking() bool {
	return s.speaking.Load()
}

func (s *Sequencer) speakCursor(gen uint64) {
	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return
	}
	seg := s.segments[s.cursor]
	s.mu.Unlock()

	s.synth.Speak(Utterance{
		Content: seg,
		Rate:    s.rate,
		Pitch:   1.0,
		Volume:  1.0,
		Locale:  s.locale,
	}, UtteranceEvents{
		OnEnd: func() {
			s.advance(gen, s.segmentPause)
		},
		OnError: func(code string) {
			if IsCancellationCode(code) {
				// Expected result of Stop or a superseding Speak.
				return
			}
			s.notify("Part of the reply could not be spoken. Continuing with the next point.")
			s.advance(gen, s.errorSkipPause)
		},
	})
}

// advance moves to the next segment after pause, or finishes playback when
// the current segment was the last one. Finishing is immediate, only the
// step to a following segment is delayed.
func (s *Sequencer) advance(gen uint64, pause time.Duration) {
	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return
	}
	if s.cursor+1 >= len(s.segments) {
		s.active = false
		s.segments = nil
		s.cursor = 0
		s.pending = nil
		s.mu.Unlock()
		s.setSpeaking(false)
		return
	}
	s.pending = s.guard.Schedule(pause, func() {
		s.mu.Lock()
		if !s.currentLocked(gen) {
			s.mu.Unlock()
			return
		}
		s.cursor++
		s.pending = nil
		s.mu.Unlock()
		s.speakCursor(gen)
	})
	s.mu.Unlock()
}

func (s *Sequencer) currentLocked(gen uint64) bool {
	return s.guard.Live() && s.active && gen == s.generation
}

func (s *Sequencer) cancelPendingLocked() {
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
	}
}

func (s *Sequencer) setSpeaking(v bool) {
	if s.speaking.Swap(v) == v {
		return
	}
	if s.onSpeaking != nil {
		s.onSpeaking(v)
	}
}

func (s *Sequencer) notify(text string) {
	if s.notifier != nil {
		s.notifier.Notify(text)
	}
}
