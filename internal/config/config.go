// Package config loads service configuration from a YAML file and/or
// environment variables. Environment variables always win, so deploys
// can override a checked-in config file without editing it.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string `yaml:"env" env:"APP_ENV" env-default:"local"`
	AppName string `yaml:"app_name" env:"APP_NAME" env-default:"Email Assistant"`
	Port    string `yaml:"port" env:"PORT" env-default:"8000"`

	// StoragePath is the SQLite database file holding user sessions.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"sessions.db"`

	FrontendURL string `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	BackendURL  string `yaml:"backend_url" env:"BACKEND_URL" env-default:"http://localhost:8000"`

	Google GoogleConfig `yaml:"google"`
	LLM    LLMConfig    `yaml:"llm"`
	CORS   CORSConfig   `yaml:"cors"`

	// SessionTTL is the session lifetime used when the identity
	// provider does not supply a token expiry.
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"1h"`

	// FlowTTL bounds how long a started login flow may sit unfinished.
	FlowTTL time.Duration `yaml:"flow_ttl" env:"FLOW_TTL" env-default:"10m"`

	// SweepInterval is how often expired, non-refreshable sessions are
	// purged from storage.
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL" env-default:"1h"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID" env-required:"true"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET" env-required:"true"`
}

type LLMConfig struct {
	APIKey  string `yaml:"api_key" env:"GROQ_API_KEY" env-required:"true"`
	BaseURL string `yaml:"base_url" env:"LLM_BASE_URL" env-default:"https://api.groq.com/openai/v1"`
	Model   string `yaml:"model" env:"LLM_MODEL" env-default:"llama-3.3-70b-versatile"`
}

// RedirectURL is where the identity provider sends the user back after
// consent. It must match one of the redirect URIs registered with the
// provider.
func (c *Config) RedirectURL() string {
	return c.BackendURL + "/api/auth/callback/google"
}

func (c *Config) Addr() string {
	if len(c.Port) > 0 && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

// MustLoad reads configuration and panics on failure. Config file path
// comes from the -config flag or CONFIG_PATH; with neither set, the
// environment alone is used.
func MustLoad() *Config {
	cfg, err := Load(fetchConfigPath())
	if err != nil {
		panic("loading config: " + err.Error())
	}
	return cfg
}

func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// fetchConfigPath resolves the config file path. Priority: flag > env.
func fetchConfigPath() string {
	var res string

	if !flag.Parsed() {
		flag.StringVar(&res, "config", "", "path to config file")
		flag.Parse()
	}
	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
