// Package export renders conversation transcripts as shareable documents.
package export

import (
	"strings"
	"time"

	"u-tutor-be/pkg/llm"
)

// Transcript is the storage-independent view of a conversation to export.
type Transcript struct {
	Title     string
	CreatedAt time.Time
	Messages  []llm.Message
}

const timeLayout = "2006-01-02 15:04"

// Markdown renders the transcript as a Markdown document: title heading,
// creation date, then each message as a role-labeled section in order.
func Markdown(t Transcript) string {
	var b strings.Builder

	title := strings.TrimSpace(t.Title)
	if title == "" {
		title = "Conversation"
	}
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString("*Created: ")
	b.WriteString(t.CreatedAt.Format(timeLayout))
	b.WriteString("*\n\n---\n\n")

	for _, msg := range t.Messages {
		label := "Tutor"
		if msg.Role == "user" {
			label = "You"
		}
		b.WriteString("**")
		b.WriteString(label)
		b.WriteString(":**\n\n")
		b.WriteString(strings.TrimSpace(msg.Content))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Filename derives a filesystem-safe name for the exported document.
func Filename(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(title))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "conversation"
	}
	if len(cleaned) > 60 {
		cleaned = cleaned[:60]
	}
	return strings.ToLower(cleaned) + ".md"
}
