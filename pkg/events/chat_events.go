package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeConversationCreated = "conversation.created"
	TypeConversationDeleted = "conversation.deleted"
	TypeMessageAppended     = "message.appended"
	TypeTitleGenerated      = "title.generated"
	TypeSpeechSynthesized   = "speech.synthesized"
)

func NewConversationCreated(conversationID uuid.UUID, title string) Event {
	return BaseEvent{
		Type: TypeConversationCreated,
		Data: map[string]interface{}{
			"conversation_id": conversationID.String(),
			"title":           title,
		},
		OccurredAt: time.Now(),
	}
}

func NewConversationDeleted(conversationID uuid.UUID) Event {
	return BaseEvent{
		Type: TypeConversationDeleted,
		Data: map[string]interface{}{
			"conversation_id": conversationID.String(),
		},
		OccurredAt: time.Now(),
	}
}

func NewMessageAppended(conversationID uuid.UUID, role string, length int) Event {
	return BaseEvent{
		Type: TypeMessageAppended,
		Data: map[string]interface{}{
			"conversation_id": conversationID.String(),
			"role":            role,
			"content_length":  length,
		},
		OccurredAt: time.Now(),
	}
}

func NewTitleGenerated(conversationID uuid.UUID, title string) Event {
	return BaseEvent{
		Type: TypeTitleGenerated,
		Data: map[string]interface{}{
			"conversation_id": conversationID.String(),
			"title":           title,
		},
		OccurredAt: time.Now(),
	}
}

func NewSpeechSynthesized(conversationID *uuid.UUID, language string, audioBytes int, cached bool) Event {
	data := map[string]interface{}{
		"language":    language,
		"audio_bytes": audioBytes,
		"cached":      cached,
	}
	if conversationID != nil {
		data["conversation_id"] = conversationID.String()
	}
	return BaseEvent{
		Type:       TypeSpeechSynthesized,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
