// Package config handles StyleGenie configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/stylegenie/config.yaml, /etc/stylegenie/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "stylegenie", "config.yaml"))
	}

	paths = append(paths, "/etc/stylegenie/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all StyleGenie configuration.
type Config struct {
	Listen      ListenConfig      `yaml:"listen"`
	Model       ModelConfig       `yaml:"model"`
	ImageEdit   ImageEditConfig   `yaml:"image_edit"`
	Search      SearchConfig      `yaml:"search"`
	Memory      MemoryConfig      `yaml:"memory"`
	Credentials CredentialsConfig `yaml:"credentials"`
	DataDir     string            `yaml:"data_dir"`
	LogLevel    string            `yaml:"log_level"`

	// MaxIterations bounds the tool-call loop within a single turn.
	MaxIterations int `yaml:"max_iterations"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// ModelConfig selects the reasoning model.
type ModelConfig struct {
	Provider string `yaml:"provider"` // gemini or anthropic
	Name     string `yaml:"name"`
}

// ImageEditConfig selects the image generation model.
type ImageEditConfig struct {
	Model string `yaml:"model"`
}

// SearchConfig defines web search settings.
type SearchConfig struct {
	Primary    string `yaml:"primary"` // tavily or linkup
	MaxResults int    `yaml:"max_results"`
}

// MemoryConfig defines the long-term memory service settings.
type MemoryConfig struct {
	BaseURL  string `yaml:"base_url"`
	PageSize int    `yaml:"page_size"`
}

// CredentialsConfig holds API keys. Each value may reference an environment
// variable via ${VAR} expansion; an empty value falls back to the
// conventional environment variable for that service.
type CredentialsConfig struct {
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	TavilyAPIKey    string `yaml:"tavily_api_key"`
	LinkupAPIKey    string `yaml:"linkup_api_key"`
	Mem0APIKey      string `yaml:"mem0_api_key"`
}

// MissingCredentialError identifies a required credential that no source
// (config file or environment) supplied.
type MissingCredentialError struct {
	Name string
	Env  string
}

// Error implements the error interface.
func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing credential %s (set it in the config file or via %s)", e.Name, e.Env)
}

// Load reads configuration from a YAML file. A .env file in the working
// directory is loaded first so that ${VAR} references and environment
// fallbacks resolve; a missing .env is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.resolveCredentials()
	return cfg, nil
}

// resolveCredentials applies the environment fallback for each key that the
// config file left empty. Resolution happens exactly once, at load time.
func (c *Config) resolveCredentials() {
	fallbacks := []struct {
		dst *string
		env string
	}{
		{&c.Credentials.GeminiAPIKey, "GEMINI_API_KEY"},
		{&c.Credentials.AnthropicAPIKey, "ANTHROPIC_API_KEY"},
		{&c.Credentials.TavilyAPIKey, "TAVILY_API_KEY"},
		{&c.Credentials.LinkupAPIKey, "LINKUP_API_KEY"},
		{&c.Credentials.Mem0APIKey, "MEM0_API_KEY"},
	}
	for _, f := range fallbacks {
		if *f.dst == "" {
			*f.dst = os.Getenv(f.env)
		}
	}
}

// Validate checks that every credential the configured components need is
// present. It fails fast so a misconfigured deployment never limps along
// re-resolving keys per call.
func (c *Config) Validate() error {
	if c.Credentials.GeminiAPIKey == "" {
		return &MissingCredentialError{Name: "gemini_api_key", Env: "GEMINI_API_KEY"}
	}
	if c.Model.Provider == "anthropic" && c.Credentials.AnthropicAPIKey == "" {
		return &MissingCredentialError{Name: "anthropic_api_key", Env: "ANTHROPIC_API_KEY"}
	}
	switch c.Search.Primary {
	case "tavily":
		if c.Credentials.TavilyAPIKey == "" {
			return &MissingCredentialError{Name: "tavily_api_key", Env: "TAVILY_API_KEY"}
		}
	case "linkup":
		if c.Credentials.LinkupAPIKey == "" {
			return &MissingCredentialError{Name: "linkup_api_key", Env: "LINKUP_API_KEY"}
		}
	default:
		return fmt.Errorf("unknown search provider %q (expected tavily or linkup)", c.Search.Primary)
	}
	switch c.Model.Provider {
	case "gemini", "anthropic":
	default:
		return fmt.Errorf("unknown model provider %q (expected gemini or anthropic)", c.Model.Provider)
	}
	return nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8501},
		Model: ModelConfig{
			Provider: "gemini",
			Name:     "gemini-2.5-flash",
		},
		ImageEdit: ImageEditConfig{
			Model: "gemini-2.5-flash-image",
		},
		Search: SearchConfig{
			Primary:    "tavily",
			MaxResults: 5,
		},
		Memory: MemoryConfig{
			BaseURL:  "https://api.mem0.ai",
			PageSize: 50,
		},
		DataDir:       ".",
		MaxIterations: 8,
	}
}
