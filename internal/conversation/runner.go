package conversation

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/antoniostano/ridewise/internal/assistant"
	"github.com/antoniostano/ridewise/internal/config"
	"github.com/antoniostano/ridewise/internal/memory"
	"github.com/antoniostano/ridewise/internal/observability"
	"github.com/antoniostano/ridewise/internal/policy"
	"github.com/antoniostano/ridewise/internal/protocol"
	"github.com/antoniostano/ridewise/internal/session"
	"github.com/antoniostano/ridewise/internal/voice"
)

var errConnectionClosed = errors.New("connection closed")

// Runner drives one websocket conversation: it owns the per-connection voice
// controller, feeds user queries to the assistant, and mirrors voice state
// back to the client.
type Runner struct {
	cfg      config.Config
	sessions *session.Manager
	store    memory.Store
	adapter  assistant.Adapter
	builder  *assistant.ContextBuilder
	metrics  *observability.Metrics
}

func NewRunner(cfg config.Config, sessions *session.Manager, store memory.Store, adapter assistant.Adapter, metrics *observability.Metrics) *Runner {
	return &Runner{
		cfg:      cfg,
		sessions: sessions,
		store:    store,
		adapter:  adapter,
		builder:  assistant.NewContextBuilder(store),
		metrics:  metrics,
	}
}

type pendingReply struct {
	messageID string
	source    string
	started   time.Time
	reply     assistant.Reply
	err       error
}

// RunConnection serves one websocket until the inbound channel closes or the
// context is cancelled. Messages on outbound are written by the transport.
func (r *Runner) RunConnection(ctx context.Context, sess *session.Session, inbound <-chan any, outbound chan<- any) error {
	send := func(msg any) bool {
		select {
		case outbound <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	}

	synth, recog, synthRelay, recogRelay := r.capabilities(sess, send)

	transcripts := make(chan string, 4)
	replies := make(chan pendingReply, 4)

	var stateMu sync.Mutex
	var speaking, listening bool
	pushState := func(mutate func()) {
		stateMu.Lock()
		mutate()
		s, l := speaking, listening
		stateMu.Unlock()
		send(protocol.VoiceState{Type: protocol.TypeVoiceState, SessionID: sess.ID, Speaking: s, Listening: l})
	}

	ctrl := voice.NewController(synth, recog, voice.Config{
		Locale:          sess.Locale,
		SpeechRate:      r.cfg.VoiceSpeechRate,
		SegmentPause:    r.cfg.VoiceSegmentPause,
		ErrorSkipPause:  r.cfg.VoiceErrorSkipPause,
		TranscriptDelay: r.cfg.VoiceTranscriptDelay,
		Notifier: voice.NotifierFunc(func(text string) {
			send(protocol.Notice{Type: protocol.TypeNotice, SessionID: sess.ID, Text: text})
		}),
		OnTranscript: func(transcript string) {
			select {
			case transcripts <- transcript:
			case <-ctx.Done():
			}
		},
		OnSpeakingChange:  func(v bool) { pushState(func() { speaking = v }) },
		OnListeningChange: func(v bool) { pushState(func() { listening = v }) },
	})
	defer ctrl.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case transcript := <-transcripts:
			r.acceptQuery(ctx, sess, transcript, "voice", send, replies)
		case pr := <-replies:
			r.deliverReply(ctx, sess, ctrl, pr, send)
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			_ = r.sessions.Touch(sess.ID)
			switch m := msg.(type) {
			case protocol.ClientQuery:
				r.acceptQuery(ctx, sess, m.Text, m.Source, send, replies)
			case protocol.ClientControl:
				r.handleControl(ctx, sess, ctrl, m, send)
			case protocol.SynthesisEvent:
				if m.Event == protocol.SynthesisError && r.metrics != nil {
					r.metrics.UtteranceErrors.WithLabelValues(m.Code).Inc()
				}
				if synthRelay != nil {
					synthRelay.HandleEvent(m)
				}
			case protocol.RecognitionEvent:
				if r.metrics != nil {
					r.metrics.RecognitionEvents.WithLabelValues(m.Event).Inc()
				}
				if recogRelay != nil {
					recogRelay.HandleEvent(m)
				}
			}
		}
	}
}

// capabilities picks browser-relayed or loopback speech primitives.
func (r *Runner) capabilities(sess *session.Session, send func(any) bool) (voice.Synthesizer, voice.Recognizer, *synthesisRelay, *recognitionRelay) {
	if r.cfg.VoiceCapability == "loopback" {
		return &voice.LoopbackSynthesizer{}, &voice.LoopbackRecognizer{}, nil, nil
	}
	synthRelay := newSynthesisRelay(sess.ID, send)
	recogRelay := newRecognitionRelay(sess.ID, sess.Locale, send)
	return synthRelay, recogRelay, synthRelay, recogRelay
}

func (r *Runner) acceptQuery(ctx context.Context, sess *session.Session, text, source string, send func(any) bool, replies chan<- pendingReply) {
	redacted, changed := policy.RedactPII(text)
	messageID := uuid.NewString()

	if err := r.store.SaveTurn(ctx, memory.TurnRecord{
		ID:          messageID,
		UserID:      sess.UserID,
		SessionID:   sess.ID,
		Role:        "user",
		Content:     redacted,
		PIIRedacted: changed,
	}); err != nil {
		log.Printf("conversation: save user turn: %v", err)
	}

	send(protocol.UserMessage{
		Type:      protocol.TypeUserMessage,
		SessionID: sess.ID,
		MessageID: messageID,
		Text:      redacted,
		Source:    source,
	})

	pr := pendingReply{messageID: messageID, source: source, started: time.Now()}
	go func() {
		if r.adapter == nil {
			pr.err = assistant.ErrUnavailable
		} else {
			req := r.builder.BuildRequest(ctx, sess.UserID, redacted)
			pr.reply, pr.err = r.adapter.Generate(ctx, req)
		}
		select {
		case replies <- pr:
		case <-ctx.Done():
		}
	}()
}

func (r *Runner) deliverReply(ctx context.Context, sess *session.Session, ctrl *voice.Controller, pr pendingReply, send func(any) bool) {
	if pr.err != nil {
		log.Printf("conversation: assistant reply failed: %v", pr.err)
		code := "assistant_failed"
		detail := "The assistant could not answer. Please try again."
		if errors.Is(pr.err, assistant.ErrUnavailable) {
			code = "assistant_unavailable"
			detail = "The assistant is not configured. Set GEMINI_API_KEY to enable replies."
		}
		send(protocol.ErrorEvent{Type: protocol.TypeErrorEvent, SessionID: sess.ID, Code: code, Detail: detail})
		return
	}

	if r.metrics != nil {
		r.metrics.AssistantReplies.WithLabelValues(pr.reply.Source).Inc()
		r.metrics.ObserveReplyLatency(time.Since(pr.started))
	}

	if err := r.store.SaveTurn(ctx, memory.TurnRecord{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Role:      "assistant",
		Content:   pr.reply.Text,
	}); err != nil {
		log.Printf("conversation: save assistant turn: %v", err)
	}

	spoken := pr.source == "voice" && ctrl.HasSynthesis()
	send(protocol.AssistantReply{
		Type:        protocol.TypeAssistantReply,
		SessionID:   sess.ID,
		MessageID:   uuid.NewString(),
		Text:        pr.reply.Text,
		ReplySource: pr.reply.Source,
		Spoken:      spoken,
	})

	if pr.source == "voice" {
		if r.metrics != nil {
			r.metrics.SpokenSegments.Add(float64(len(voice.SegmentText(pr.reply.Text))))
		}
		ctrl.Speak(pr.reply.Text)
	}
}

func (r *Runner) handleControl(ctx context.Context, sess *session.Session, ctrl *voice.Controller, m protocol.ClientControl, send func(any) bool) {
	switch m.Action {
	case protocol.ActionToggleListen:
		if err := ctrl.ToggleListening(); err != nil {
			send(protocol.Notice{
				Type:      protocol.TypeNotice,
				SessionID: sess.ID,
				Text:      "Voice input is not supported in this browser.",
			})
		}
	case protocol.ActionStopSpeaking:
		ctrl.StopSpeaking()
	case protocol.ActionVisibilityHidden:
		ctrl.SetHidden(true)
	case protocol.ActionVisibilityVisible:
		ctrl.SetHidden(false)
	case protocol.ActionResetConversation:
		if err := r.store.ResetTurns(ctx, sess.UserID); err != nil {
			log.Printf("conversation: reset turns: %v", err)
			return
		}
		send(protocol.Notice{Type: protocol.TypeNotice, SessionID: sess.ID, Text: "Conversation history cleared."})
	}
}
