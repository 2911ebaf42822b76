package constant

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"

	// DefaultLanguage is the fallback when a session never set one.
	DefaultLanguage = "en"

	// TitleGenerationTopic is the in-process pub/sub topic for async
	// conversation title generation.
	TitleGenerationTopic = "generate_conversation_title"
)
