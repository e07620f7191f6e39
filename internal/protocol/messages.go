package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

// Client to server.
const (
	TypeClientQuery      MessageType = "client_query"
	TypeClientControl    MessageType = "client_control"
	TypeSynthesisEvent   MessageType = "synthesis_event"
	TypeRecognitionEvent MessageType = "recognition_event"
)

// Server to client.
const (
	TypeSpeakUtterance MessageType = "speak_utterance"
	TypeCancelSpeech   MessageType = "cancel_speech"
	TypeListenStart    MessageType = "listen_start"
	TypeListenStop     MessageType = "listen_stop"
	TypeUserMessage    MessageType = "user_message"
	TypeAssistantReply MessageType = "assistant_reply"
	TypeVoiceState     MessageType = "voice_state"
	TypeNotice         MessageType = "notice"
	TypeErrorEvent     MessageType = "error_event"
)

// Control actions carried by ClientControl.
const (
	ActionToggleListen      = "toggle_listen"
	ActionStopSpeaking      = "stop_speaking"
	ActionVisibilityHidden  = "visibility_hidden"
	ActionVisibilityVisible = "visibility_visible"
	ActionResetConversation = "reset_conversation"
)

// Synthesis event kinds reported back for one utterance.
const (
	SynthesisStarted  = "started"
	SynthesisFinished = "finished"
	SynthesisError    = "error"
)

// Recognition event kinds reported back for one listening session.
const (
	RecognitionResult = "result"
	RecognitionError  = "error"
	RecognitionEnd    = "end"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ClientQuery carries one typed or transcribed user message.
type ClientQuery struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
	// Source is "typed" or "voice"; voice queries get spoken replies.
	Source string `json:"source"`
}

type ClientControl struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Action    string      `json:"action"`
}

// SynthesisEvent reports the outcome of one utterance the server asked the
// client to speak. UtteranceID echoes SpeakUtterance.UtteranceID.
type SynthesisEvent struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"session_id"`
	UtteranceID string      `json:"utterance_id"`
	Event       string      `json:"event"`
	Code        string      `json:"code,omitempty"`
}

// RecognitionEvent reports the outcome of the client's listening session.
type RecognitionEvent struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"session_id"`
	Event      string      `json:"event"`
	Transcript string      `json:"transcript,omitempty"`
	Code       string      `json:"code,omitempty"`
}

// SpeakUtterance asks the client to synthesize one segment.
type SpeakUtterance struct {
	Type        MessageType `json:"type"`
	SessionID   string      `json:"session_id"`
	UtteranceID string      `json:"utterance_id"`
	Content     string      `json:"content"`
	Rate        float64     `json:"rate"`
	Pitch       float64     `json:"pitch"`
	Volume      float64     `json:"volume"`
	Locale      string      `json:"locale"`
}

// CancelSpeech asks the client to discard the current and queued utterances.
type CancelSpeech struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

// ListenStart asks the client to open one single-shot recognition session.
type ListenStart struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Locale    string      `json:"locale"`
}

// ListenStop asks the client to end the recognition session early.
type ListenStop struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

// UserMessage echoes an accepted user message so the client transcript view
// stays authoritative with the server.
type UserMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	MessageID string      `json:"message_id"`
	Text      string      `json:"text"`
	Source    string      `json:"source"`
}

// AssistantReply delivers one assistant turn.
type AssistantReply struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	MessageID string      `json:"message_id"`
	Text      string      `json:"text"`
	// ReplySource is "model", "fallback_model" or "canned".
	ReplySource string `json:"reply_source"`
	Spoken      bool   `json:"spoken"`
}

// VoiceState mirrors the server-side speaking and listening flags.
type VoiceState struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Speaking  bool        `json:"speaking"`
	Listening bool        `json:"listening"`
}

// Notice is a transient user-facing toast.
type Notice struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Code      string      `json:"code"`
	Detail    string      `json:"detail"`
}

func validControlAction(a string) bool {
	switch a {
	case ActionToggleListen, ActionStopSpeaking, ActionVisibilityHidden, ActionVisibilityVisible, ActionResetConversation:
		return true
	default:
		return false
	}
}

// ParseClientMessage decodes and validates one inbound websocket frame.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientQuery:
		var msg ClientQuery
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.Text == "" {
			return nil, errors.New("invalid client_query")
		}
		if msg.Source != "typed" && msg.Source != "voice" {
			return nil, fmt.Errorf("invalid client_query source %q", msg.Source)
		}
		return msg, nil
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || !validControlAction(msg.Action) {
			return nil, errors.New("invalid client_control")
		}
		return msg, nil
	case TypeSynthesisEvent:
		var msg SynthesisEvent
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" || msg.UtteranceID == "" {
			return nil, errors.New("invalid synthesis_event")
		}
		switch msg.Event {
		case SynthesisStarted, SynthesisFinished, SynthesisError:
		default:
			return nil, fmt.Errorf("invalid synthesis_event kind %q", msg.Event)
		}
		return msg, nil
	case TypeRecognitionEvent:
		var msg RecognitionEvent
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if msg.SessionID == "" {
			return nil, errors.New("invalid recognition_event")
		}
		switch msg.Event {
		case RecognitionResult, RecognitionError, RecognitionEnd:
		default:
			return nil, fmt.Errorf("invalid recognition_event kind %q", msg.Event)
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
