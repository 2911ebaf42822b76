package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"u-tutor-be/pkg/llm"
)

func TestMarkdownRendersFullTranscript(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)
	doc := Markdown(Transcript{
		Title:     "Biology: Photosynthesis",
		CreatedAt: created,
		Messages: []llm.Message{
			{Role: "user", Content: "What is photosynthesis?"},
			{Role: "assistant", Content: "It is how plants convert light into energy."},
		},
	})

	assert.True(t, strings.HasPrefix(doc, "# Biology: Photosynthesis\n"))
	assert.Contains(t, doc, "*Created: 2026-03-14 09:26*")
	assert.Contains(t, doc, "---")

	userIdx := strings.Index(doc, "**You:**\n\nWhat is photosynthesis?")
	tutorIdx := strings.Index(doc, "**Tutor:**\n\nIt is how plants convert light into energy.")
	assert.Greater(t, userIdx, 0)
	assert.Greater(t, tutorIdx, userIdx, "messages must appear in chronological order")
}

func TestMarkdownEmptyTitleFallsBack(t *testing.T) {
	doc := Markdown(Transcript{CreatedAt: time.Now()})
	assert.True(t, strings.HasPrefix(doc, "# Conversation\n"))
}

func TestFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Biology: Photosynthesis", "biology-photosynthesis.md"},
		{"   ", "conversation.md"},
		{"¿Qué es?", "qu-es.md"},
		{strings.Repeat("a", 100), strings.Repeat("a", 60) + ".md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Filename(tt.title))
	}
}
