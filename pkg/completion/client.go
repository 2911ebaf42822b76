package completion

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"u-tutor-be/pkg/llm"
)

const (
	// MaxTitleLength caps model-generated conversation titles.
	MaxTitleLength = 40
	// TruncatedTitleLength is used by the truncation fallback.
	TruncatedTitleLength = 50

	defaultTitle = "New Conversation"
)

// Client wraps an LLM provider with the tutor-specific call patterns:
// persona-prefixed chat, streaming, best-effort translation and title
// generation. The persona and temperature are mutable; a change takes effect
// on the next call only.
type Client struct {
	provider llm.LLMProvider

	mu            sync.RWMutex
	systemMessage string
	temperature   float64
}

func NewClient(provider llm.LLMProvider, temperature float64) *Client {
	return &Client{
		provider:      provider,
		systemMessage: defaultSystemMessage,
		temperature:   temperature,
	}
}

// SetPersona switches the system instruction to a named preset. Unknown
// presets leave the current persona untouched, matching the original
// configuration behavior.
func (c *Client) SetPersona(preset string) {
	prompt, ok := personaPresets[preset]
	if !ok {
		return
	}
	c.mu.Lock()
	c.systemMessage = prompt
	c.mu.Unlock()
}

func (c *Client) SetTemperature(value float64) {
	c.mu.Lock()
	c.temperature = value
	c.mu.Unlock()
}

func (c *Client) Temperature() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.temperature
}

// prepareMessages prepends the current system persona to the history.
func (c *Client) prepareMessages(history []llm.Message) ([]llm.Message, float64) {
	c.mu.RLock()
	system := c.systemMessage
	temp := c.temperature
	c.mu.RUnlock()

	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: "system", Content: system})
	msgs = append(msgs, history...)
	return msgs, temp
}

// GetResponse performs a single-shot completion over the full history.
func (c *Client) GetResponse(ctx context.Context, history []llm.Message) (string, error) {
	msgs, temp := c.prepareMessages(history)
	return c.provider.Chat(ctx, msgs, llm.WithTemperature(temp))
}

// StreamResponse starts a streamed completion over the full history. The
// returned channels follow the llm.LLMProvider.Stream contract.
func (c *Client) StreamResponse(ctx context.Context, history []llm.Message) (<-chan string, <-chan error) {
	msgs, temp := c.prepareMessages(history)
	return c.provider.Stream(ctx, msgs, llm.WithTemperature(temp))
}

// Translate converts text to the target language. Best-effort: on any
// failure the original text is returned unchanged rather than an error.
func (c *Client) Translate(ctx context.Context, text, targetLanguage string) string {
	if targetLanguage == "" || strings.TrimSpace(text) == "" {
		return text
	}

	prompt := []llm.Message{
		{Role: "system", Content: fmt.Sprintf(`You are an expert translator. Translate the following text to %s.

Rules:
- Keep the tone and style of the original text
- Preserve formatting (markdown, lists, etc.)
- Translate only the content, do not add explanations
- If the text is already in %s, return it as-is

Reply ONLY with the translation, nothing else.`, strings.ToUpper(targetLanguage), strings.ToUpper(targetLanguage))},
		{Role: "user", Content: text},
	}

	translated, err := c.provider.Chat(ctx, prompt, llm.WithTemperature(0))
	if err != nil {
		return text
	}
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return text
	}
	return translated
}

// GenerateTitle produces a short descriptive title from the opening messages
// of a conversation. Best-effort: falls back to truncating the first message.
func (c *Client) GenerateTitle(ctx context.Context, history []llm.Message) string {
	prompt := []llm.Message{
		{Role: "system", Content: `You are an assistant that generates concise, descriptive titles for tutoring conversations.

Rules:
- Maximum 40 characters
- Use keywords from the main topic
- Be specific and clear
- Do NOT include emojis
- Examples: "Math: Equations", "Biology: Photosynthesis", "Programming: OOP"

Reply ONLY with the title, nothing else.`},
		{Role: "user", Content: "Generate a title for this conversation:\n\n" + formatMessagesForTitle(history)},
	}

	raw, err := c.provider.Chat(ctx, prompt, llm.WithTemperature(0.3))
	if err != nil {
		return fallbackTitle(history)
	}

	title := strings.TrimSpace(raw)
	title = strings.NewReplacer(`"`, "", "'", "").Replace(title)
	title = strings.TrimSpace(title)
	if len(title) > MaxTitleLength {
		title = title[:MaxTitleLength-3] + "..."
	}
	if title == "" {
		return fallbackTitle(history)
	}
	return title
}

// TruncateTitle derives a title from a first message by truncation.
func TruncateTitle(firstMessage string) string {
	trimmed := strings.TrimSpace(firstMessage)
	if trimmed == "" {
		return defaultTitle
	}
	runes := []rune(trimmed)
	if len(runes) > TruncatedTitleLength {
		return strings.TrimSpace(string(runes[:TruncatedTitleLength])) + "..."
	}
	return trimmed
}

func fallbackTitle(history []llm.Message) string {
	for _, msg := range history {
		if msg.Role == "user" && msg.Content != "" {
			return TruncateTitle(msg.Content)
		}
	}
	return defaultTitle
}

// formatMessagesForTitle renders the first few turns for the title prompt.
func formatMessagesForTitle(history []llm.Message) string {
	var b strings.Builder
	max := len(history)
	if max > 3 {
		max = 3
	}
	for i := 0; i < max; i++ {
		role := "Tutor"
		if history[i].Role == "user" {
			role = "Student"
		}
		content := history[i].Content
		if len(content) > 200 {
			content = content[:200]
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
