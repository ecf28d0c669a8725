package driven

// PromptStore resolves prompt templates by name. The file adapter lets
// users override the embedded defaults.
type PromptStore interface {
	// Load returns the named template, falling back to the built-in one.
	Load(name string) (string, error)

	// Reload drops cached templates so the next Load reads them again.
	Reload()
}

// PromptChatSystem names the system prompt sent ahead of each thread's
// messages. It has no placeholders.
const PromptChatSystem = "chat_system"
