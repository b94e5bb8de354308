// LLM Provider Factory - builder-first API for creating model backend adapters.
//
// Quick Start:
//
//	// Defaults, API key from environment
//	openai, err := llm.ProviderOpenAI.FromEnv()
//
//	// Planner model from the model table
//	info, _ := llm.LookupModel(llm.ModelQwen2VLMax)
//	qwen, err := info.Provider.Model(info.APIID).MaxTokens(4096).FromEnv()
//
//	// Self-hosted endpoint reached over an SSH jump host
//	ssh, err := llm.ProviderSSH.
//	    Model("Qwen2-VL-7B-Instruct").
//	    Endpoint("gpu-box:8000").
//	    Tunnel(&llm.TunnelConfig{Addr: "bastion:22", User: "me", KeyFile: "~/.ssh/id_ed25519"}).
//	    FromEnv()

package llm

import (
	"net/http"
	"os"
	"strings"
)

// ProviderType represents supported model backends. The set is closed.
type ProviderType int

const (
	// ProviderOpenAI is the native OpenAI API.
	ProviderOpenAI ProviderType = iota
	// ProviderOpenRouter is the OpenRouter OpenAI-compatible API.
	ProviderOpenRouter
	// ProviderLMStudio is a local LM Studio OpenAI-compatible server.
	ProviderLMStudio
	// ProviderQwen is Alibaba DashScope's native multimodal API.
	ProviderQwen
	// ProviderSSH is a self-hosted OpenAI-compatible server addressed by host:port.
	ProviderSSH
	// ProviderAnthropic is the Anthropic Messages API.
	ProviderAnthropic
	// ProviderGemini is the Google Gemini API.
	ProviderGemini
)

// Default base URLs for OpenAI-compatible providers.
const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	LMStudioBaseURL   = "http://localhost:1234/v1"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderOpenRouter:
		return "openrouter"
	case ProviderLMStudio:
		return "lmstudio"
	case ProviderQwen:
		return "qwen"
	case ProviderSSH:
		return "ssh"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable holding this provider's credential.
// For SSH the variable holds the host:port endpoint, for LM Studio the base URL.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderLMStudio:
		return "LMSTUDIO_URL"
	case ProviderQwen:
		return "QWEN_API_KEY"
	case ProviderSSH:
		return "SSH_ENDPOINT"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default API model identifier for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o-2024-11-20"
	case ProviderOpenRouter:
		return ModelQwen25VL72BFree
	case ProviderQwen:
		return "qwen2-vl-max"
	case ProviderSSH:
		return "Qwen2-VL-7B-Instruct"
	case ProviderAnthropic:
		return ModelClaude35Sonnet
	case ProviderGemini:
		return ModelGeminiFlash2
	default:
		return ""
	}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "openrouter":
		return ProviderOpenRouter, nil
	case "lmstudio", "lm studio", "lm-studio":
		return ProviderLMStudio, nil
	case "qwen", "dashscope":
		return ProviderQwen, nil
	case "ssh":
		return ProviderSSH, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return 0, configError("provider", s, ErrUnsupportedProvider, "")
	}
}

// FromEnv creates a provider with defaults, reading the credential from environment.
func (p ProviderType) FromEnv() (Provider, error) {
	return NewProviderBuilder(p).FromEnv()
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// APIKey creates a provider with an explicit credential (uses defaults for everything else).
func (p ProviderType) APIKey(key string) (Provider, error) {
	return NewProviderBuilder(p).APIKey(key)
}

// Options carries transport settings shared by all adapters.
type Options struct {
	// Name overrides the provider name reported by Name().
	Name string
	// BaseURL overrides the API endpoint.
	BaseURL string
	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client
}

// ProviderBuilder is a builder for configuring LLM providers.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	maxTokens    uint32
	temperature  *float32
	baseURL      string
	endpoint     string
	tunnel       *TunnelConfig
	httpClient   *http.Client
}

// NewProviderBuilder creates a new builder for the given provider.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{
		providerType: providerType,
	}
}

// Model sets the API model identifier.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// MaxTokens sets maximum tokens for responses.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

// Temperature sets temperature (0.0 = deterministic, 1.0 = creative).
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// BaseURL overrides the API endpoint.
func (b *ProviderBuilder) BaseURL(url string) *ProviderBuilder {
	b.baseURL = url
	return b
}

// Endpoint sets the host:port of a self-hosted server (SSH provider).
// When unset the credential is parsed as host:port instead.
func (b *ProviderBuilder) Endpoint(hostPort string) *ProviderBuilder {
	b.endpoint = hostPort
	return b
}

// Tunnel routes SSH provider traffic through an SSH jump host.
func (b *ProviderBuilder) Tunnel(t *TunnelConfig) *ProviderBuilder {
	b.tunnel = t
	return b
}

// HTTPClient overrides the HTTP client used by the adapter.
func (b *ProviderBuilder) HTTPClient(c *http.Client) *ProviderBuilder {
	b.httpClient = c
	return b
}

// FromEnv builds the provider, reading the credential from environment.
func (b *ProviderBuilder) FromEnv() (Provider, error) {
	envVar := b.providerType.EnvVar()
	credential := os.Getenv(envVar)
	if credential == "" && b.needsCredential() {
		return nil, configError("credential", envVar, nil, "environment variable not set")
	}
	return b.build(credential)
}

// APIKey builds the provider with an explicit credential.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	return b.build(key)
}

func (b *ProviderBuilder) needsCredential() bool {
	switch b.providerType {
	case ProviderLMStudio:
		return false
	case ProviderSSH:
		return b.endpoint == ""
	default:
		return true
	}
}

func (b *ProviderBuilder) build(credential string) (Provider, error) {
	model := b.model
	if model == "" {
		model = b.providerType.DefaultModel()
	}

	maxTokens := b.maxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	temperature := float32(0.7) // default
	if b.temperature != nil {
		temperature = *b.temperature
	}

	opts := Options{BaseURL: b.baseURL, HTTPClient: b.httpClient}

	switch b.providerType {
	case ProviderOpenAI:
		return NewOpenAIProvider(credential, model, maxTokens, temperature, opts), nil
	case ProviderOpenRouter:
		opts.Name = "openrouter"
		if opts.BaseURL == "" {
			opts.BaseURL = OpenRouterBaseURL
		}
		return NewOpenAIProvider(credential, model, maxTokens, temperature, opts), nil
	case ProviderLMStudio:
		opts.Name = "lmstudio"
		if opts.BaseURL == "" {
			opts.BaseURL = credential
		}
		if opts.BaseURL == "" {
			opts.BaseURL = LMStudioBaseURL
		}
		return NewOpenAIProvider("lm-studio", model, maxTokens, temperature, opts), nil
	case ProviderQwen:
		return NewQwenProvider(credential, model, maxTokens, temperature, opts), nil
	case ProviderSSH:
		endpoint := b.endpoint
		if endpoint == "" {
			endpoint = credential
		}
		p, err := NewSSHProvider(endpoint, model, maxTokens, temperature, b.tunnel, opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderAnthropic:
		return NewAnthropicProvider(credential, model, maxTokens, temperature, opts), nil
	case ProviderGemini:
		return NewGeminiProvider(credential, model, maxTokens, temperature, opts), nil
	default:
		return nil, configError("provider", b.providerType.String(), ErrUnsupportedProvider, "")
	}
}
