package voice

import (
	"sync"
	"time"
)

// Loopback capabilities simulate the platform speech primitives in-process.
// They back the dev mode (VOICE_CAPABILITY=loopback) and the package tests,
// so the controller logic can be exercised without a browser attached.

// LoopbackSynthesizer pretends to play each utterance for a fixed duration
// and then reports completion. CancelAll makes the in-flight utterance report
// an interruption, the way a real speech engine would.
type LoopbackSynthesizer struct {
	// PlayTime is the simulated duration of one utterance.
	PlayTime time.Duration

	mu         sync.Mutex
	generation uint64
	spoken     []string
}

func (s *LoopbackSynthesizer) Speak(u Utterance, ev UtteranceEvents) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.spoken = append(s.spoken, u.Content)
	s.mu.Unlock()

	if ev.OnStart != nil {
		ev.OnStart()
	}
	d := s.PlayTime
	if d <= 0 {
		d = 5 * time.Millisecond
	}
	time.AfterFunc(d, func() {
		s.mu.Lock()
		current := gen == s.generation
		s.mu.Unlock()
		if !current {
			if ev.OnError != nil {
				ev.OnError("interrupted")
			}
			return
		}
		if ev.OnEnd != nil {
			ev.OnEnd()
		}
	})
}

func (s *LoopbackSynthesizer) CancelAll() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// Spoken returns a copy of every utterance content passed to Speak so far.
func (s *LoopbackSynthesizer) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.spoken))
	copy(out, s.spoken)
	return out
}

// LoopbackRecognizer completes each session with a scripted transcript after
// a short delay, unless stopped first.
type LoopbackRecognizer struct {
	// Transcript is what every session hears. Defaults to a canned phrase.
	Transcript string
	// Latency is how long a session listens before reporting. Defaults short.
	Latency time.Duration

	mu         sync.Mutex
	generation uint64
	active     bool
}

func (r *LoopbackRecognizer) Start(ev RecognitionEvents) error {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.active = true
	r.mu.Unlock()

	d := r.Latency
	if d <= 0 {
		d = 10 * time.Millisecond
	}
	time.AfterFunc(d, func() {
		r.mu.Lock()
		current := gen == r.generation && r.active
		if current {
			r.active = false
		}
		r.mu.Unlock()
		if !current {
			return
		}
		transcript := r.Transcript
		if transcript == "" {
			transcript = "simulated voice input"
		}
		if ev.OnResult != nil {
			ev.OnResult(transcript)
		}
	})
	return nil
}

func (r *LoopbackRecognizer) Stop() {
	r.mu.Lock()
	r.generation++
	r.active = false
	r.mu.Unlock()
}
