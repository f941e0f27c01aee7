// Package config loads process configuration from the environment and the
// optional page-copy file.
package config

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds everything the mini-app shell needs at startup. The backend
// URL here is only the build-time default; a launch parameter may override
// it per session.
type Config struct {
	Addr           string        `env:"MINIAPP_ADDR,default=:3000"`
	BackendURL     string        `env:"MINIAPP_BACKEND_URL,default=http://localhost:8080"`
	RequestTimeout time.Duration `env:"MINIAPP_REQUEST_TIMEOUT,default=15s"`

	DevMode   bool   `env:"MINIAPP_DEV_MODE,default=false"`
	LogLevel  string `env:"MINIAPP_LOG_LEVEL,default=info"`
	LogPretty bool   `env:"MINIAPP_LOG_PRETTY,default=false"`

	// Launch inputs for runs outside the chat host. InitData mirrors the
	// host's raw init-data blob; LaunchQuery mirrors the launch URL query
	// string (tgWebAppStartParam, chat_id).
	InitData    string `env:"MINIAPP_INIT_DATA,default="`
	LaunchQuery string `env:"MINIAPP_LAUNCH_QUERY,default="`

	PagesFile string `env:"MINIAPP_PAGES_FILE,default=config/pages.yaml"`
}

// Load reads .env when present and decodes the environment into a Config.
func Load() (Config, error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode environment: %w", err)
	}
	return cfg, nil
}
