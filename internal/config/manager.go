package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type manager struct {
	mu     sync.RWMutex
	config *Config
	viper  *viper.Viper
}

func NewManager() Manager {
	return &manager{
		viper: viper.New(),
	}
}

func (m *manager) Load(configPath string) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setupViper(configPath)

	if err := m.viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := m.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m.config = &config
	return &config, nil
}

func (m *manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config == nil {
		return fmt.Errorf("config not loaded")
	}

	if err := m.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	var config Config
	if err := m.viper.Unmarshal(&config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)
	if err := validateConfig(&config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	m.config = &config
	return nil
}

func (m *manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

func (m *manager) setupViper(configPath string) {
	m.viper.SetConfigFile(configPath)

	m.viper.SetEnvPrefix("SEARCHVOLUME")
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	// A plain bool cannot distinguish unset from false, so the default has
	// to live in viper for the provider's clickstream contract to hold.
	m.viper.SetDefault("sync.use_clickstream", true)
}

func applyDefaults(config *Config) {
	if config.Provider.RateLimit == 0 {
		config.Provider.RateLimit = 12
	}
	if config.Sync.LocationName == "" {
		config.Sync.LocationName = "United States"
	}
	if config.Sync.LanguageName == "" {
		config.Sync.LanguageName = "English"
	}
	if config.Sync.BatchSize == 0 {
		// The provider accepts up to 1000 keywords per task but
		// recommends staying around 700.
		config.Sync.BatchSize = 700
	}
	if config.Sync.BatchDelay == 0 {
		config.Sync.BatchDelay = 2 * time.Second
	}
	if config.Tickers.Model == "" {
		config.Tickers.Model = "gpt-5"
	}
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
}

func validateConfig(config *Config) error {
	if _, _, err := config.Provider.Credentials(); err != nil {
		return err
	}

	if config.Provider.RateLimit < 0 {
		return fmt.Errorf("provider rate_limit cannot be negative")
	}

	if config.Sync.BatchSize <= 0 || config.Sync.BatchSize > 1000 {
		return fmt.Errorf("sync batch_size must be 1-1000, got %d", config.Sync.BatchSize)
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if !config.Sync.DryRun && config.Store.ProjectID == "" {
		return fmt.Errorf("store project_id is required unless sync runs dry")
	}

	return nil
}
