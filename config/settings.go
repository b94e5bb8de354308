// Package config provides application settings loaded from a YAML file and
// environment variables.
//
// Settings are created via Load() which handles:
// - Default value application
// - Optional config file and VLMPILOT_* environment overrides
// - Validation
// Provider credentials stay in their conventional variables and are looked
// up with APIKeyFor.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. VLMPILOT_PLANNER_MODEL.
const EnvPrefix = "VLMPILOT"

// Settings holds all application configuration.
type Settings struct {
	Planner PlannerConfig `mapstructure:"planner" yaml:"planner"`
	Actor   ActorConfig   `mapstructure:"actor" yaml:"actor"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Screen  ScreenConfig  `mapstructure:"screen" yaml:"screen"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
}

// PlannerConfig configures the planning model.
type PlannerConfig struct {
	Provider           string       `mapstructure:"provider" yaml:"provider"`
	Model              string       `mapstructure:"model" yaml:"model"`
	APIKey             string       `mapstructure:"api_key" yaml:"api_key"`
	Endpoint           string       `mapstructure:"endpoint" yaml:"endpoint"`
	BaseURL            string       `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens          uint32       `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature        float32      `mapstructure:"temperature" yaml:"temperature"`
	Retries            int          `mapstructure:"retries" yaml:"retries"`
	SystemPromptSuffix string       `mapstructure:"system_prompt_suffix" yaml:"system_prompt_suffix"`
	Tunnel             TunnelConfig `mapstructure:"tunnel" yaml:"tunnel"`
}

// TunnelConfig configures an SSH jump host for self-hosted planners.
// An empty Addr disables tunnelling.
type TunnelConfig struct {
	Addr           string        `mapstructure:"addr" yaml:"addr"`
	User           string        `mapstructure:"user" yaml:"user"`
	KeyFile        string        `mapstructure:"key_file" yaml:"key_file"`
	KnownHostsFile string        `mapstructure:"known_hosts_file" yaml:"known_hosts_file"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ActorConfig configures the grounding model.
type ActorConfig struct {
	Provider            string `mapstructure:"provider" yaml:"provider"`
	Model               string `mapstructure:"model" yaml:"model"`
	BaseURL             string `mapstructure:"base_url" yaml:"base_url"`
	APIKey              string `mapstructure:"api_key" yaml:"api_key"`
	MaxTokens           uint32 `mapstructure:"max_tokens" yaml:"max_tokens"`
	Retries             int    `mapstructure:"retries" yaml:"retries"`
	ActionHistoryWindow int    `mapstructure:"action_history_window" yaml:"action_history_window"`
}

// SessionConfig configures the sampling loop.
type SessionConfig struct {
	SelectedScreen int `mapstructure:"selected_screen" yaml:"selected_screen"`
	// OnlyNMostRecentImages bounds screenshots kept in history. Negative
	// disables pruning.
	OnlyNMostRecentImages int  `mapstructure:"only_n_most_recent_images" yaml:"only_n_most_recent_images"`
	MaxTurns              int  `mapstructure:"max_turns" yaml:"max_turns"`
	DirectMode            bool `mapstructure:"direct_mode" yaml:"direct_mode"`
	HideImages            bool `mapstructure:"hide_images" yaml:"hide_images"`
}

// Screen backends.
const (
	BackendBrowser = "browser"
	BackendFiles   = "files"
)

// ScreenConfig selects where screenshots come from and input goes to.
type ScreenConfig struct {
	Backend   string `mapstructure:"backend" yaml:"backend"`
	StartURL  string `mapstructure:"start_url" yaml:"start_url"`
	Width     int    `mapstructure:"width" yaml:"width"`
	Height    int    `mapstructure:"height" yaml:"height"`
	Headless  bool   `mapstructure:"headless" yaml:"headless"`
	FramesDir string `mapstructure:"frames_dir" yaml:"frames_dir"`
}

// StorageConfig configures screenshot and transcript storage.
// An empty DBPath keeps everything in memory.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ImagesToKeep returns the screenshot budget, or nil when pruning is off.
func (s SessionConfig) ImagesToKeep() *int {
	if s.OnlyNMostRecentImages < 0 {
		return nil
	}
	n := s.OnlyNMostRecentImages
	return &n
}

// SetDefaults registers every setting with its default. Keys must be
// registered for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	// -- Planner --
	v.SetDefault("planner.provider", "")
	v.SetDefault("planner.model", "gpt-4o")
	v.SetDefault("planner.api_key", "")
	v.SetDefault("planner.endpoint", "")
	v.SetDefault("planner.base_url", "")
	v.SetDefault("planner.max_tokens", 4096)
	v.SetDefault("planner.temperature", 0)
	v.SetDefault("planner.retries", 0)
	v.SetDefault("planner.system_prompt_suffix", "")
	v.SetDefault("planner.tunnel.addr", "")
	v.SetDefault("planner.tunnel.user", "")
	v.SetDefault("planner.tunnel.key_file", "~/.ssh/id_ed25519")
	v.SetDefault("planner.tunnel.known_hosts_file", "")
	v.SetDefault("planner.tunnel.timeout", "10s")

	// -- Actor --
	v.SetDefault("actor.provider", "")
	v.SetDefault("actor.model", "ShowUI")
	v.SetDefault("actor.base_url", "")
	v.SetDefault("actor.api_key", "")
	v.SetDefault("actor.max_tokens", 128)
	v.SetDefault("actor.retries", 0)
	v.SetDefault("actor.action_history_window", 0)

	// -- Session --
	v.SetDefault("session.selected_screen", 0)
	v.SetDefault("session.only_n_most_recent_images", 10)
	v.SetDefault("session.max_turns", 20)
	v.SetDefault("session.direct_mode", false)
	v.SetDefault("session.hide_images", false)

	// -- Screen --
	v.SetDefault("screen.backend", BackendBrowser)
	v.SetDefault("screen.start_url", "about:blank")
	v.SetDefault("screen.width", 1920)
	v.SetDefault("screen.height", 1080)
	v.SetDefault("screen.headless", true)
	v.SetDefault("screen.frames_dir", "")

	// -- Storage --
	v.SetDefault("storage.db_path", "")

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "vlmpilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
}

// Load reads settings. path names a config file; when empty, vlmpilot.yaml
// in the working directory is used if it exists. Environment variables
// override both, e.g. VLMPILOT_SESSION_MAX_TURNS=5.
func Load(path string) (Settings, error) {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("vlmpilot")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates settings from v.
func FromViper(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// MustLoad loads settings and panics on error.
// Use this only when configuration errors should be fatal.
func MustLoad(path string) Settings {
	settings, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Validate checks the configuration for required fields and sane values.
func (s Settings) Validate() error {
	if s.Planner.Model == "" && !s.Session.DirectMode {
		return fmt.Errorf("planner.model is required unless session.direct_mode is set")
	}
	if s.Planner.MaxTokens == 0 {
		return fmt.Errorf("planner.max_tokens must be a positive integer")
	}
	if s.Planner.Temperature < 0 {
		return fmt.Errorf("planner.temperature must not be negative")
	}
	if s.Actor.Model == "" {
		return fmt.Errorf("actor.model is required")
	}
	if s.Actor.MaxTokens == 0 {
		return fmt.Errorf("actor.max_tokens must be a positive integer")
	}
	if s.Planner.Retries < 0 || s.Actor.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if s.Actor.ActionHistoryWindow < 0 {
		return fmt.Errorf("actor.action_history_window must not be negative")
	}
	if s.Session.MaxTurns <= 0 {
		return fmt.Errorf("session.max_turns must be a positive integer")
	}
	if s.Session.SelectedScreen < 0 {
		return fmt.Errorf("session.selected_screen must not be negative")
	}
	if s.Screen.Width <= 0 || s.Screen.Height <= 0 {
		return fmt.Errorf("screen.width and screen.height must be positive")
	}
	switch s.Screen.Backend {
	case BackendBrowser:
	case BackendFiles:
		if s.Screen.FramesDir == "" {
			return fmt.Errorf("screen.frames_dir is required for the %q backend", BackendFiles)
		}
	default:
		return fmt.Errorf("unknown screen.backend: %q", s.Screen.Backend)
	}
	return nil
}

// providerKeyEnv maps provider names to the variable holding their credential.
var providerKeyEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"lmstudio":   "LMSTUDIO_URL",
	"qwen":       "QWEN_API_KEY",
	"ssh":        "SSH_ENDPOINT",
	"anthropic":  "ANTHROPIC_API_KEY",
	"gemini":     "GEMINI_API_KEY",
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude":    "anthropic",
	"google":    "gemini",
	"gpt":       "openai",
	"dashscope": "qwen",
}

// NormalizeProvider converts provider aliases to canonical names.
func NormalizeProvider(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// APIKeyFor returns the credential for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = NormalizeProvider(provider)

	envVar, ok := providerKeyEnv[provider]
	if !ok {
		return "", fmt.Errorf("unknown provider: %q", provider)
	}

	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", envVar)
	}
	return key, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providerKeyEnv))
	for name := range providerKeyEnv {
		result = append(result, name)
	}
	return result
}
