// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: TOML configuration at ~/.docqa/config.toml
//   - PromptStore: editable prompt files under ~/.docqa/prompts/
package file
