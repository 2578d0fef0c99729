package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	API        API        `yaml:"api"`
	Filter     Filter     `yaml:"filter"`
	Extraction Extraction `yaml:"extraction"`
	Embedding  Embedding  `yaml:"embedding"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

type API struct {
	BaseURL       string `yaml:"base_url"`
	AppName       string `yaml:"appname"`
	FeedURL       string `yaml:"feed_url"`
	Limit         int    `yaml:"limit"`
	RatePerSecond int    `yaml:"rate_per_second"`
}

type Filter struct {
	Country  string `yaml:"country"`
	Policy   string `yaml:"policy"`
	Format   string `yaml:"format"`
	Theme    string `yaml:"theme"`
	Source   string `yaml:"source"`
	Language string `yaml:"language"`
	DateFrom string `yaml:"date_from"`
	DateTo   string `yaml:"date_to"`
}

type Extraction struct {
	ChunkMethod  string `yaml:"chunk_method"`
	MaxChunkSize int    `yaml:"max_chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

type Embedding struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimension   int    `yaml:"dimension"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for reliefdocs.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "reliefdocs")
}

// DataDir returns the XDG data directory for reliefdocs.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "reliefdocs")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/reliefdocs/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'reliefdocs init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		API: API{
			BaseURL:       "https://api.reliefweb.int/v1/reports",
			AppName:       "reliefdocs",
			Limit:         1000,
			RatePerSecond: 1,
		},
		Filter: Filter{
			Country: "Sudan",
			Policy:  "primary",
		},
		Extraction: Extraction{
			ChunkMethod:  "semantic",
			MaxChunkSize: 1000,
			ChunkOverlap: 100,
		},
		Embedding: Embedding{
			Provider:    "ollama",
			Model:       "nomic-embed-text",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "text-embedding-3-small",
			APIKeyEnv:   "OPENAI_API_KEY",
			Dimension:   768,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DocumentsDir returns the directory downloaded attachments are stored in.
func (c *Config) DocumentsDir() string {
	return filepath.Join(c.GetDataDir(), "documents")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
