package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"searchvolume-go/pkg/export"
	"searchvolume-go/pkg/logger"
	"searchvolume-go/pkg/store"
)

type Config struct {
	Provider ProviderConfig        `mapstructure:"provider"`
	Sync     SyncConfig            `mapstructure:"sync"`
	Store    store.FirestoreConfig `mapstructure:"store"`
	Export   export.Config         `mapstructure:"export"`
	Tickers  TickersConfig         `mapstructure:"tickers"`
	Server   ServerConfig          `mapstructure:"server"`
	Logger   logger.Config         `mapstructure:"logger"`
}

// ProviderConfig holds SEO data provider credentials. Either Login/Password
// or Auth (a base64-encoded "login:password" blob, the format the deployment
// secrets use) must be set.
type ProviderConfig struct {
	Login     string `mapstructure:"login"`
	Password  string `mapstructure:"password"`
	Auth      string `mapstructure:"auth"`
	RateLimit int    `mapstructure:"rate_limit"`
	BaseURL   string `mapstructure:"base_url"`
}

// Credentials resolves the configured credential pair, decoding the combined
// blob when the plain pair is absent.
func (p *ProviderConfig) Credentials() (login, password string, err error) {
	if p.Login != "" && p.Password != "" {
		return p.Login, p.Password, nil
	}
	if p.Auth == "" {
		return "", "", fmt.Errorf("provider credentials missing: set login/password or auth")
	}

	decoded, err := base64.StdEncoding.DecodeString(p.Auth)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode provider auth: %w", err)
	}
	login, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", "", fmt.Errorf("provider auth must decode to login:password")
	}
	return login, password, nil
}

type SyncConfig struct {
	LocationName   string        `mapstructure:"location_name"`
	LanguageName   string        `mapstructure:"language_name"`
	UseClickstream bool          `mapstructure:"use_clickstream"`
	BatchSize      int           `mapstructure:"batch_size"`
	BatchDelay     time.Duration `mapstructure:"batch_delay"`
	DryRun         bool          `mapstructure:"dry_run"`
}

type TickersConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type Manager interface {
	Load(configPath string) (*Config, error)
	Reload() error
	GetConfig() *Config
}
