package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Analyzer struct {
		Language string `yaml:"language"`
		Workers  int    `yaml:"workers"`
	} `yaml:"analyzer"`
	AI struct {
		Model  string `yaml:"model"`
		APIKey string `yaml:"api_key"`
	} `yaml:"ai"`
}

// Default values when no config file is present.
const (
	DefaultLanguage = "python"
	DefaultWorkers  = 8
	DefaultAIModel  = "gemini-2.0-flash"
)

// LoadConfig reads the optional YAML config and applies environment
// overrides. A missing file is not an error; the analysis core never
// depends on configuration, only the CLI wiring does.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Analyzer.Language = DefaultLanguage
	cfg.Analyzer.Workers = DefaultWorkers
	cfg.AI.Model = DefaultAIModel

	// 2. Load YAML config if present
	if file, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	}

	// 3. Override with environment variables if present
	if apiKey := os.Getenv("CODETOUR_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	}
	if model := os.Getenv("CODETOUR_AI_MODEL"); model != "" {
		cfg.AI.Model = model
	}
	if workers := os.Getenv("CODETOUR_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.Analyzer.Workers = n
		}
	}

	if cfg.Analyzer.Workers <= 0 {
		cfg.Analyzer.Workers = DefaultWorkers
	}
	if cfg.Analyzer.Language == "" {
		cfg.Analyzer.Language = DefaultLanguage
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = DefaultAIModel
	}

	return cfg, nil
}
