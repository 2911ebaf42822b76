package store

import (
	"time"

	"github.com/google/uuid"

	"u-tutor-be/pkg/llm"
)

// Session carries the per-browser-session conversational state: which
// conversation is open, the in-memory transcript, and the flags the chat
// controller uses to coordinate generation across requests.
type Session struct {
	ID             string
	ConversationID *uuid.UUID
	Messages       []llm.Message

	// AwaitingResponse is set between accepting a user message and
	// persisting the assistant reply for it.
	AwaitingResponse bool
	// GenerationCancelled marks that the user navigated away mid-stream;
	// any late result for the cancelled turn must be discarded.
	GenerationCancelled bool
	// PendingMessage holds input submitted while a conversation switch was
	// in flight, replayed once the switch completes.
	PendingMessage string

	Language    string
	Persona     string
	Temperature float64

	CreatedAt  time.Time
	LastActive time.Time
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:          id,
		Language:    "en",
		Temperature: 0.7,
		CreatedAt:   now,
		LastActive:  now,
	}
}

// Touch refreshes the activity timestamp used for idle expiry.
func (s *Session) Touch() {
	s.LastActive = time.Now()
}

// LastMessage returns the newest transcript entry, or nil when empty.
func (s *Session) LastMessage() *llm.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}

// ResetTranscript clears the in-memory history, keeping session settings.
func (s *Session) ResetTranscript() {
	s.Messages = nil
	s.ConversationID = nil
	s.AwaitingResponse = false
	s.GenerationCancelled = false
}
