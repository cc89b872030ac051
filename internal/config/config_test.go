package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")
	configViper.Set("admin.password", "password")

	cfg, err := Load(configViper)
	require.NoError(t, err)

	require.Equal(t, defaultHTTPAddress, cfg.HTTPAddress)
	require.Equal(t, defaultLogLevel, cfg.LogLevel)
	require.False(t, cfg.LogDevelopment)
	require.Equal(t, defaultArchiveDirectory, cfg.ArchiveDirectory)
	require.Empty(t, cfg.ArchiveDatabasePath)
	require.True(t, cfg.SeedDefaults)
	require.Equal(t, 60*time.Minute, cfg.TokenTTL)
	require.Equal(t, defaultCookieName, cfg.CookieName)
	require.False(t, cfg.SecureCookies)
	require.Equal(t, defaultAdminEmail, cfg.AdminEmail)
	require.Equal(t, []string{defaultAllowedOrigins}, cfg.AllowedOrigins)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("WESTERNSTAR_AUTH_SIGNING_SECRET", "env-secret")
	t.Setenv("WESTERNSTAR_ADMIN_PASSWORD", "env-password")
	t.Setenv("WESTERNSTAR_LOG_DEVELOPMENT", "true")
	t.Setenv("WESTERNSTAR_CORS_ALLOWED_ORIGINS", "https://westernstar.example, https://admin.westernstar.example")

	cfg, err := Load(NewViper())
	require.NoError(t, err)

	require.Equal(t, "env-secret", cfg.SigningSecret)
	require.Equal(t, "env-password", cfg.AdminPassword)
	require.True(t, cfg.LogDevelopment)
	require.Equal(t, []string{"https://westernstar.example", "https://admin.westernstar.example"}, cfg.AllowedOrigins)
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  signing_secret: file-secret
  token_ttl_minutes: 15
admin:
  email: editor@westernstar.example
  password: file-password
archive:
  database_path: /var/lib/westernstar/archive.db
content:
  seed_defaults: false
`), 0o600))

	configViper := NewViper()
	configViper.SetConfigFile(path)
	require.NoError(t, configViper.ReadInConfig())

	cfg, err := Load(configViper)
	require.NoError(t, err)

	require.Equal(t, 15*time.Minute, cfg.TokenTTL)
	require.Equal(t, "editor@westernstar.example", cfg.AdminEmail)
	require.Equal(t, "/var/lib/westernstar/archive.db", cfg.ArchiveDatabasePath)
	require.False(t, cfg.SeedDefaults)
}

func TestLoadValidatesRequiredKeys(t *testing.T) {
	testCases := []struct {
		name   string
		values map[string]any
		want   string
	}{
		{name: "signing-secret", values: map[string]any{"admin.password": "p"}, want: "auth.signing_secret is required"},
		{name: "admin-password", values: map[string]any{"auth.signing_secret": "s"}, want: "admin.password is required"},
		{name: "token-ttl", values: map[string]any{"auth.signing_secret": "s", "admin.password": "p", "auth.token_ttl_minutes": 0}, want: "auth.token_ttl_minutes must be positive"},
		{name: "cookie-name", values: map[string]any{"auth.signing_secret": "s", "admin.password": "p", "auth.cookie_name": " "}, want: "auth.cookie_name is required"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			configViper := NewViper()
			for key, value := range testCase.values {
				configViper.Set(key, value)
			}
			_, err := Load(configViper)
			require.EqualError(t, err, testCase.want)
		})
	}
}

func TestLoadArchiveRequiresDatabasePath(t *testing.T) {
	configViper := NewViper()

	_, err := LoadArchive(configViper)
	require.EqualError(t, err, "archive.database_path is required")

	configViper.Set("archive.database_path", "/var/lib/westernstar/archive.db")
	cfg, err := LoadArchive(configViper)
	require.NoError(t, err)
	require.Equal(t, defaultArchiveDirectory, cfg.Directory)
	require.Equal(t, "/var/lib/westernstar/archive.db", cfg.DatabasePath)
}
