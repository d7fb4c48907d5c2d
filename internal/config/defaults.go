package config

import "snapbuy/internal/provider"

func Defaults() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			Model: provider.DefaultModel,
		},
		Server: ServerConfig{
			Port: 3000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
