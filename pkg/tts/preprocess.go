package tts

import (
	"regexp"
	"strings"
)

// maxSpeechLength caps the synthesized text so responses with very long
// content do not produce multi-minute audio clips.
const maxSpeechLength = 2000

const truncationNotice = "... [audio truncated]"

var (
	fencedCodeRe = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`([^`]*)`")
	boldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*]+)\*`)
	urlRe        = regexp.MustCompile(`https?://\S+`)
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	listMarkerRe = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// PrepareForSpeech strips markdown and other non-speakable artifacts from a
// chat message so the TTS engines receive plain prose. Idempotent: running
// it over its own output yields the same text.
func PrepareForSpeech(text string) string {
	text = fencedCodeRe.ReplaceAllString(text, " code block omitted ")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = urlRe.ReplaceAllString(text, "link")
	text = headingRe.ReplaceAllString(text, "")
	text = listMarkerRe.ReplaceAllString(text, "")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	if strings.HasSuffix(text, truncationNotice) {
		return text
	}
	runes := []rune(text)
	if len(runes) > maxSpeechLength {
		text = strings.TrimSpace(string(runes[:maxSpeechLength])) + truncationNotice
	}
	return text
}
