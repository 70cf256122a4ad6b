package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "TASKLET"
	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultDatabasePath      = "tasklet.db"
	defaultLogLevel          = "info"
	defaultTokenTTLMinutes   = 30
	defaultTombstoneDays     = 30
	defaultTokenIssuerName   = "tasklet-auth"
	defaultTokenAudienceName = "tasklet-api"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	DatabasePath       string
	LogLevel           string
	SigningSecret      string
	TokenIssuer        string
	TokenAudience      string
	TokenTTL           time.Duration
	TombstoneRetention time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.issuer", defaultTokenIssuerName)
	configViper.SetDefault("auth.audience", defaultTokenAudienceName)
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("sync.tombstone_retention_days", defaultTombstoneDays)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		DatabasePath:       configViper.GetString("database.path"),
		LogLevel:           configViper.GetString("log.level"),
		SigningSecret:      configViper.GetString("auth.signing_secret"),
		TokenIssuer:        configViper.GetString("auth.issuer"),
		TokenAudience:      configViper.GetString("auth.audience"),
		TokenTTL:           time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		TombstoneRetention: time.Duration(configViper.GetInt("sync.tombstone_retention_days")) * 24 * time.Hour,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	if c.TombstoneRetention < 0 {
		return fmt.Errorf("sync.tombstone_retention_days must not be negative")
	}
	return nil
}
