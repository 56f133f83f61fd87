package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv(projectIDEnv, "")
	c, err := Parse([]byte("walletkit:\n  project_id: abc123\n"))
	require.NoError(t, err)

	assert.Equal(t, "abc123", c.WalletKit.ProjectID)
	assert.Equal(t, DefaultRelayURL, c.WalletKit.RelayURL)
	assert.Equal(t, DefaultPairingProjectID, c.Pairing.ProjectID)
	assert.Equal(t, DefaultHTTPAddr, c.HTTPAddr)
	assert.Equal(t, 256, c.QRCode.Size)
	assert.Equal(t, 10*time.Minute, c.QRCode.CacheTTL)
	assert.False(t, c.RedisCredential.Enabled())
}

func TestProjectIDFromEnv(t *testing.T) {
	t.Setenv(projectIDEnv, "from-env")
	c, err := Parse([]byte("walletkit:\n  project_id: abc123\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.WalletKit.ProjectID)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("walletkit:\n  projectid: abc\n"))
	require.Error(t, err)
}

func TestLoadShippedFile(t *testing.T) {
	t.Setenv(projectIDEnv, "")
	c, err := Load("config.yml")
	require.NoError(t, err)
	assert.Equal(t, 60, c.RateLimit.PerMinute)
	assert.Equal(t, "localhost:6379", (&DBCredential{Address: "localhost", Port: "6379"}).GetRedisAddress())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: [1"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
}
