package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                 = "WESTERNSTAR"
	defaultHTTPAddress        = "0.0.0.0:8080"
	defaultLogLevel           = "info"
	defaultArchiveDirectory   = "archive"
	defaultTokenTTLMinutes    = 60
	defaultCookieName         = "westernstar_session"
	defaultAdminEmail         = "admin@westernstar.example"
	defaultAllowedOrigins     = "http://localhost:5173"
	defaultSeedContent        = true
	defaultDevelopmentLogging = false
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress         string
	LogLevel            string
	LogDevelopment      bool
	ArchiveDirectory    string
	ArchiveDatabasePath string
	SeedDefaults        bool
	SigningSecret       string
	TokenTTL            time.Duration
	CookieName          string
	SecureCookies       bool
	AdminEmail          string
	AdminPassword       string
	AllowedOrigins      []string
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
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.development", defaultDevelopmentLogging)
	configViper.SetDefault("archive.directory", defaultArchiveDirectory)
	configViper.SetDefault("archive.database_path", "")
	configViper.SetDefault("content.seed_defaults", defaultSeedContent)
	configViper.SetDefault("auth.signing_secret", "")
	configViper.SetDefault("auth.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("auth.cookie_name", defaultCookieName)
	configViper.SetDefault("auth.secure_cookies", false)
	configViper.SetDefault("admin.email", defaultAdminEmail)
	configViper.SetDefault("admin.password", "")
	configViper.SetDefault("cors.allowed_origins", defaultAllowedOrigins)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:         strings.TrimSpace(configViper.GetString("http.address")),
		LogLevel:            configViper.GetString("log.level"),
		LogDevelopment:      configViper.GetBool("log.development"),
		ArchiveDirectory:    strings.TrimSpace(configViper.GetString("archive.directory")),
		ArchiveDatabasePath: strings.TrimSpace(configViper.GetString("archive.database_path")),
		SeedDefaults:        configViper.GetBool("content.seed_defaults"),
		SigningSecret:       configViper.GetString("auth.signing_secret"),
		TokenTTL:            time.Duration(configViper.GetInt("auth.token_ttl_minutes")) * time.Minute,
		CookieName:          strings.TrimSpace(configViper.GetString("auth.cookie_name")),
		SecureCookies:       configViper.GetBool("auth.secure_cookies"),
		AdminEmail:          strings.TrimSpace(configViper.GetString("admin.email")),
		AdminPassword:       configViper.GetString("admin.password"),
		AllowedOrigins:      splitOrigins(configViper.GetStringSlice("cors.allowed_origins")),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// ArchiveConfig captures the settings used by the archive import command.
type ArchiveConfig struct {
	Directory      string
	DatabasePath   string
	LogLevel       string
	LogDevelopment bool
}

// LoadArchive parses archive settings from viper. Unlike Load it needs no
// admin credentials, but it requires a database to import into.
func LoadArchive(configViper *viper.Viper) (ArchiveConfig, error) {
	cfg := ArchiveConfig{
		Directory:      strings.TrimSpace(configViper.GetString("archive.directory")),
		DatabasePath:   strings.TrimSpace(configViper.GetString("archive.database_path")),
		LogLevel:       configViper.GetString("log.level"),
		LogDevelopment: configViper.GetBool("log.development"),
	}
	if cfg.Directory == "" {
		return ArchiveConfig{}, fmt.Errorf("archive.directory is required")
	}
	if cfg.DatabasePath == "" {
		return ArchiveConfig{}, fmt.Errorf("archive.database_path is required")
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.HTTPAddress == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive")
	}
	if c.CookieName == "" {
		return fmt.Errorf("auth.cookie_name is required")
	}
	if c.AdminEmail == "" {
		return fmt.Errorf("admin.email is required")
	}
	if c.AdminPassword == "" {
		return fmt.Errorf("admin.password is required")
	}
	return nil
}

// splitOrigins accepts list values as well as a single comma separated string,
// which is how environment variables arrive.
func splitOrigins(values []string) []string {
	origins := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}
	return origins
}
