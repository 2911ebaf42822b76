package entity

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	Id        uuid.UUID
	Title     string
	// Preferences holds per-conversation settings (persona, language,
	// temperature) chosen by the student.
	Preferences map[string]interface{}
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
	IsDeleted   bool
}
