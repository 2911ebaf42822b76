package dto

import (
	"time"

	"github.com/google/uuid"
)

type GetAllConversationsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetConversationHistoryResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type SendMessageRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required,max=4000"`
}

type SendMessageResponse struct {
	ConversationId uuid.UUID `json:"conversation_id"`
	Reply          string    `json:"reply"`
}

type RegenerateRequest struct {
	SessionId string `json:"session_id" validate:"required"`
}

type NewConversationRequest struct {
	SessionId string `json:"session_id" validate:"required"`
}

type CancelRequest struct {
	SessionId string `json:"session_id" validate:"required"`
}

type SwitchConversationRequest struct {
	SessionId      string    `json:"session_id" validate:"required"`
	ConversationId uuid.UUID `json:"conversation_id" validate:"required"`
}

type MessageView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type SessionStateResponse struct {
	SessionId           string        `json:"session_id"`
	ConversationId      *uuid.UUID    `json:"conversation_id,omitempty"`
	Messages            []MessageView `json:"messages"`
	AwaitingResponse    bool          `json:"awaiting_response"`
	GenerationCancelled bool          `json:"generation_cancelled"`
	PendingMessage      string        `json:"pending_message,omitempty"`
}

type UpdateSettingsRequest struct {
	SessionId   string   `json:"session_id" validate:"required"`
	Persona     string   `json:"persona" validate:"omitempty,oneof=default professional friendly concise detailed"`
	Language    string   `json:"language" validate:"omitempty,len=2"`
	Temperature *float64 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
}

type RenameConversationRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type SearchConversationsRequest struct {
	Query string `json:"query" validate:"required"`
}

type ConversationStatsResponse struct {
	TotalConversations int64                        `json:"total_conversations"`
	TotalMessages      int64                        `json:"total_messages"`
	UserMessages       int64                        `json:"user_messages"`
	AssistantMessages  int64                        `json:"assistant_messages"`
	AvgMessagesPerConv float64                      `json:"avg_messages_per_conversation"`
	LatestConversation *GetAllConversationsResponse `json:"latest_conversation,omitempty"`
}

type ExportConversationResponse struct {
	Filename string `json:"filename"`
	Markdown string `json:"markdown"`
}

type EmailTranscriptRequest struct {
	Recipient string `json:"recipient" validate:"required,email"`
}

// GenerateTitleMessage is the payload published for async title generation.
type GenerateTitleMessage struct {
	ConversationId uuid.UUID `json:"conversation_id"`
}
