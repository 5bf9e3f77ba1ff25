package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
env: production
server:
  port: 9000
google:
  api_key: from-file
  timeout: 30s
database:
  host: db.internal
session:
  secret: file-secret
agent:
  location: Mysuru
`)
	t.Setenv("PORT", "9100")
	t.Setenv("SESSION_SECRET", "env-secret-env-secret-env-secret-0")
	t.Setenv("PATIENT_ID", "patient_env")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", c.Env)
	assert.Equal(t, 9100, c.Server.Port)
	assert.Equal(t, ":9100", c.Addr())
	assert.Equal(t, "from-file", c.Google.APIKey)
	assert.Equal(t, 30*time.Second, c.Google.Timeout)
	assert.Equal(t, "gemini-2.5-flash", c.Google.ChatModel)
	assert.Equal(t, "env-secret-env-secret-env-secret-0", c.Session.Secret)
	assert.Equal(t, "Mysuru", c.Agent.Location)
	assert.Equal(t, "patient_env", c.Patient.ID)
	assert.True(t, c.HasDatabase())
	assert.False(t, c.UseVertex())
	assert.NoError(t, c.Validate())
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: [not, a, number\n")
	c, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "parse")
	assert.Nil(t, c)
}

func TestLoadRejectsWrongType(t *testing.T) {
	path := writeConfig(t, "server:\n  port: eighty\n")
	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "dev with api key", mutate: func(c *Config) { c.Google.APIKey = "k" }},
		{name: "dev vertex needs project", mutate: func(c *Config) { c.Google.Region = "us-central1" }, wantErr: "google.project"},
		{name: "dev vertex needs region", mutate: func(c *Config) { c.Google.Project = "p" }, wantErr: "google.region"},
		{name: "prod needs secret", mutate: func(c *Config) {
			c.Env, c.Google.APIKey, c.Database.Host = "production", "k", "db"
		}, wantErr: "session.secret"},
		{name: "prod short secret", mutate: func(c *Config) {
			c.Env, c.Google.APIKey, c.Database.Host, c.Session.Secret = "production", "k", "db", "short"
		}, wantErr: "session.secret"},
		{name: "prod needs database", mutate: func(c *Config) {
			c.Env, c.Google.APIKey, c.Session.Secret = "production", "k", "0123456789abcdef0123456789abcdef"
		}, wantErr: "database.host"},
		{name: "patient required", mutate: func(c *Config) { c.Google.APIKey, c.Patient.ID = "k", "" }, wantErr: "patient.id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaults(t *testing.T) {
	c := Default()
	assert.True(t, c.IsDevelopment())
	assert.True(t, c.UseVertex())
	assert.False(t, c.HasDatabase())
	assert.Equal(t, "patient_blr_01", c.Patient.ID)
	assert.Equal(t, "Bengaluru", c.Agent.Location)
	assert.EqualValues(t, 16<<20, c.Server.MaxUploadBytes)
}
