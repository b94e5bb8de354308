// Planner configuration types.
//
// Information Hiding:
// - Provider resolution hidden behind New
// - Default values hidden

package planner

import "github.com/richinex/vlmpilot/llm"

// Config is the immutable provider configuration of one session.
// Changing any field requires constructing a new Planner.
type Config struct {
	// Model is a display name from the model table, e.g. "gpt-4o".
	Model string

	// Provider overrides the provider the model table associates with Model.
	// Empty means use the table's provider.
	Provider string

	// APIKey is the provider credential. For the SSH provider it doubles as
	// host:port when Endpoint is empty.
	APIKey string

	// Endpoint is the host:port of a self-hosted SSH-provider server.
	Endpoint string

	// BaseURL overrides the provider's API endpoint.
	BaseURL string

	// Tunnel routes SSH-provider traffic through a jump host.
	Tunnel *llm.TunnelConfig

	MaxTokens   uint32
	Temperature float32

	// Retries is how often a transient provider failure is repeated.
	Retries int

	// SystemPromptSuffix is appended to the system prompt. Empty means a
	// note naming the host operating system.
	SystemPromptSuffix string

	// ImagesToKeep bounds screenshots retained in planner history. Nil
	// disables pruning.
	ImagesToKeep *int

	// SelectedScreen is the display index screenshots are taken from.
	SelectedScreen int
}

// DefaultConfig returns a gpt-4o planner configuration.
func DefaultConfig() Config {
	return Config{
		Model:     llm.ModelGPT4o,
		MaxTokens: 4096,
	}
}
