package driven

// PromptStore provides access to prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt for the given name. Implementations fall back
	// to a built-in default when one exists.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswerSystem holds the instructions sent with every question.
	// It has no format placeholders.
	PromptAnswerSystem = "answer_system"
)
