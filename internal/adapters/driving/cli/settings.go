package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/services"
)

var settingsPing bool

var settingsCmd = requires(&cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure chunking, retrieval, embedding, generation and
vector index settings. Settings are stored in ~/.docqa/config.toml.`,
	RunE: runSettingsShow,
}, "settings")

var settingsShowCmd = requires(&cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}, "settings")

var settingsSetCmd = requires(&cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long:  `Change one setting. Run 'docqa settings keys' for the recognised keys.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}, "settings")

var settingsKeysCmd = requires(&cobra.Command{
	Use:   "keys",
	Short: "List recognised setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}, "settings")

var settingsCheckCmd = requires(&cobra.Command{
	Use:   "check",
	Short: "Validate the settings",
	Long:  `Report every problem with the current settings. With --ping the embedding and generation providers are contacted.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsCheck,
}, "settings")

var settingsWizardCmd = requires(&cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to choose the embedding provider and generation backend.`,
	RunE:  runSettingsWizard,
}, "settings")

func init() {
	settingsCheckCmd.Flags().BoolVar(&settingsPing, "ping", false, "contact the configured providers")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Window: %d words\n", settings.Chunking.Window)
	cmd.Printf("  Overlap: %d words\n", settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Max context: %d chars\n", settings.Retrieval.MaxContextChars)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Cache: %d entries\n", settings.Embedding.CacheSize)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	g := settings.Generation
	cmd.Println("[Generation]")
	cmd.Printf("  Backend: %s\n", g.Backend.Description())
	cmd.Printf("  Provider: %s\n", g.EffectiveProvider().Description())
	cmd.Printf("  Model: %s\n", g.Model)
	if g.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", g.BaseURL)
	}
	if g.EffectiveProvider().RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayKey(g.APIKey))
	}
	cmd.Printf("  Timeout: %s, retries: %d, max tokens: %d, temperature: %.2f\n",
		g.Timeout, g.MaxRetries, g.MaxTokens, g.Temperature)
	cmd.Printf("  Status: %s\n", configuredStatus(g.IsConfigured()))
	cmd.Println()

	cmd.Println("[Vector Index]")
	cmd.Printf("  Provider: %s\n", settings.Vector.Provider)
	if settings.Vector.Provider == domain.VectorProviderQdrant {
		cmd.Printf("  URL: %s\n", settings.Vector.URL)
		cmd.Printf("  Collection: %s\n", settings.Vector.Collection)
	}
	if settings.DataDir != "" {
		cmd.Printf("  Data dir: %s\n", settings.DataDir)
	}
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.ServerAddr)
	cmd.Println()

	if problems := settingsService.Validate(); len(problems) > 0 {
		for _, p := range problems {
			cmd.Printf("Warning: %s\n", p)
		}
		cmd.Println("Run 'docqa settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if strings.HasSuffix(key, "api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	problems := settingsService.Validate()
	if settingsPing {
		if err := settingsService.ValidateEmbeddingConfig(); err != nil {
			problems = append(problems, fmt.Sprintf("embedding: %v", err))
		}
		if err := settingsService.ValidateGenerationConfig(); err != nil {
			problems = append(problems, fmt.Sprintf("generation: %v", err))
		}
	}

	if len(problems) == 0 {
		cmd.Println("Configuration is valid.")
		return nil
	}
	for _, p := range problems {
		cmd.Printf("  - %s\n", p)
	}
	return fmt.Errorf("%d configuration problems", len(problems))
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	cmd.Println("docqa Settings Wizard")
	cmd.Println("=====================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 2: Generation Backend")
	cmd.Println("--------------------------")
	if err := configureGeneration(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if problems := settingsService.Validate(); len(problems) > 0 {
		for _, p := range problems {
			cmd.Printf("Warning: %s\n", p)
		}
	} else {
		cmd.Println("All settings are valid and saved.")
	}
	return nil
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	selected := providers[parseChoice(readLine(reader), len(providers), 1)-1]

	defaultModel := domain.DefaultEmbeddingModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	if err := applySettings(map[string]string{
		services.KeyEmbedProvider: string(selected),
		services.KeyEmbedModel:    model,
	}); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	if selected.RequiresAPIKey() {
		if err := promptAPIKey(cmd, reader, services.KeyEmbedAPIKey, selected); err != nil {
			return err
		}
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selected.Description(), model)
	return nil
}

func configureGeneration(cmd *cobra.Command, reader *bufio.Reader) error {
	backends := domain.AllGenerationBackends()
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	backend := backends[parseChoice(readLine(reader), len(backends), 1)-1]

	providers := backend.Providers()
	provider := providers[0]
	if len(providers) > 1 {
		for i, p := range providers {
			cmd.Printf("  %d. %s\n", i+1, p.Description())
		}
		cmd.Print("\nEnter choice [1]: ")
		provider = providers[parseChoice(readLine(reader), len(providers), 1)-1]
	}

	defaultModel := domain.DefaultGenerationModels()[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	values := map[string]string{
		services.KeyGenBackend: string(backend),
		services.KeyGenModel:   model,
	}
	if backend == domain.GenerationBackendRemote {
		values[services.KeyGenProvider] = string(provider)
	}
	if err := applySettings(values); err != nil {
		return fmt.Errorf("failed to configure generation: %w", err)
	}

	if provider.RequiresAPIKey() {
		if err := promptAPIKey(cmd, reader, services.KeyGenAPIKey, provider); err != nil {
			return err
		}
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateGenerationConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("generation configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	cmd.Printf("Generation configured: %s, %s (%s)\n\n", backend.Description(), provider.Description(), model)
	return nil
}

// applySettings sets the backend or provider key first so that the
// dependent keys are validated against it.
func applySettings(values map[string]string) error {
	for _, key := range []string{
		services.KeyEmbedProvider, services.KeyGenBackend, services.KeyGenProvider,
		services.KeyEmbedModel, services.KeyGenModel,
	} {
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := settingsService.Set(key, v); err != nil {
			return err
		}
	}
	return nil
}

// promptAPIKey asks for a key, keeping the environment variable when the
// answer is empty and one is set.
func promptAPIKey(cmd *cobra.Command, reader *bufio.Reader, key string, p domain.AIProvider) error {
	env := p.APIKeyEnv()
	if env != "" && os.Getenv(env) != "" {
		cmd.Printf("Enter API key [from %s]: ", env)
	} else {
		cmd.Print("Enter API key: ")
	}
	apiKey := readPassword(cmd.InOrStdin(), reader)
	cmd.Println()
	if apiKey == "" {
		if env != "" && os.Getenv(env) != "" {
			return nil
		}
		return errors.New("API key is required for this provider")
	}
	return settingsService.Set(key, apiKey)
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func displayKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
