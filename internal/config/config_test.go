package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// chdir mirrors testing.T.Chdir, which requires Go 1.24; the local
// toolchain is older.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POLARIS_MCP_BASE_URL", "http://mcp.internal:8000")
	t.Setenv("POLARIS_FIREBASE_PROJECT_ID", "polaris-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://mcp.internal:8000", cfg.MCP.BaseURL)
	assert.Equal(t, "polaris-test", cfg.Firebase.ProjectID)

	// Defaults
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "session", cfg.Session.CookieName)
	assert.Equal(t, 5*24*time.Hour, cfg.Session.ExpiresIn)
	assert.Equal(t, 30*time.Second, cfg.MCP.Timeout)
	assert.Equal(t, StoreDriverFirestore, cfg.Store.Driver)
}

func TestLoadFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	data, err := yaml.Marshal(map[string]interface{}{
		"server": map[string]interface{}{
			"port":          9090,
			"allow_origins": []string{"https://app.example.com"},
		},
		"session": map[string]interface{}{
			"cookie_name": "polaris_session",
			"expires_in":  "24h",
		},
		"mcp": map[string]interface{}{
			"base_url": "http://mcp.internal:8000",
		},
		"firebase": map[string]interface{}{
			"project_id": "polaris-test",
		},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowOrigins)
	assert.Equal(t, "polaris_session", cfg.Session.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Session.ExpiresIn)
}

func TestLoadRequiresMCPBaseURL(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POLARIS_FIREBASE_PROJECT_ID", "polaris-test")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mcp.base_url")
}

func TestLoadRequiresFirebaseProject(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POLARIS_MCP_BASE_URL", "http://mcp.internal:8000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "firebase.project_id")
}

func TestLoadPostgresNeedsDatabaseURL(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POLARIS_MCP_BASE_URL", "http://mcp.internal:8000")
	t.Setenv("POLARIS_FIREBASE_PROJECT_ID", "polaris-test")
	t.Setenv("POLARIS_STORE_DRIVER", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url")
}
