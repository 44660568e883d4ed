// Package editor keeps a raw JSON session document consistent with its derived controls.
package editor

import (
	"fmt"
	"strings"
)

// ConversationMode is the turn detection policy stored in the document.
type ConversationMode string

const (
	ConversationModeServerVAD       ConversationMode = "server_vad"
	ConversationModeClientInterrupt ConversationMode = "client_interrupt"
)

func ParseConversationMode(raw string) (ConversationMode, error) {
	switch mode := ConversationMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case ConversationModeServerVAD, ConversationModeClientInterrupt:
		return mode, nil
	default:
		return "", fmt.Errorf("conversation mode must be one of: server_vad, client_interrupt (got %q)", raw)
	}
}

// ReplyMode selects streamed or sentence-synchronized replies.
type ReplyMode string

const (
	ReplyModeStream   ReplyMode = "stream"
	ReplyModeSentence ReplyMode = "sentence"
)

func ParseReplyMode(raw string) (ReplyMode, error) {
	switch mode := ReplyMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case ReplyModeStream, ReplyModeSentence:
		return mode, nil
	default:
		return "", fmt.Errorf("reply mode must be one of: stream, sentence (got %q)", raw)
	}
}

// storedReplyMode maps a stored scalar to a mode; anything but "sentence" streams.
func storedReplyMode(raw string) ReplyMode {
	if raw == string(ReplyModeSentence) {
		return ReplyModeSentence
	}
	return ReplyModeStream
}

// State is the parse state of the live buffer.
type State string

const (
	StateValid   State = "valid"
	StateInvalid State = "invalid"
)

// View is the editor as seen by a control surface.
type View struct {
	Text             string           `json:"text"`
	State            State            `json:"state"`
	Problem          string           `json:"problem,omitempty"`
	ConversationMode ConversationMode `json:"conversation_mode"`
	ReplyMode        ReplyMode        `json:"reply_mode"`
}
