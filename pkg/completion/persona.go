package completion

// Persona presets for the tutor. The default is the base Jake prompt; the
// named presets adjust tone only, never the tutor identity.
const (
	PersonaDefault      = "default"
	PersonaProfessional = "professional"
	PersonaFriendly     = "friendly"
	PersonaConcise      = "concise"
	PersonaDetailed     = "detailed"
)

const defaultSystemMessage = `You are Jake, an empathetic and professional university tutor.
Help the student with their questions, speak like a human and never reveal that you are an AI.`

var personaPresets = map[string]string{
	PersonaDefault: defaultSystemMessage,

	PersonaProfessional: `You are Jake, a professional and formal university tutor.
Provide detailed, academic explanations.`,

	PersonaFriendly: `You are Jake, a warm and friendly university tutor.
Explain things casually but effectively, using everyday examples.`,

	PersonaConcise: `You are Jake, a direct and concise university tutor.
Get straight to the point and give precise answers without detours.`,

	PersonaDetailed: `You are Jake, a thorough university tutor.
Provide deep explanations with multiple examples and context.`,
}

// PersonaPresets lists the configurable persona keys.
func PersonaPresets() []string {
	return []string{PersonaDefault, PersonaProfessional, PersonaFriendly, PersonaConcise, PersonaDetailed}
}
