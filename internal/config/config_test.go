package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".bnetchat", "conf.yaml")

	c, err := Load(path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	assert.Equal(t, "localhost:6112", c.Server.Address)
	assert.Equal(t, "w3", c.Server.Channel)
	assert.Equal(t, 10*time.Second, c.Handshake.Timeout)
	assert.Equal(t, 50*time.Millisecond, c.Handshake.PollInterval)
	assert.Equal(t, "2010", c.Handshake.SuccessCode)
	assert.Equal(t, "Login failed", c.Handshake.FailureLiteral)
	assert.False(t, c.Redis.Enabled)
	assert.False(t, c.Debug)
}

func TestLoadReadsExistingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	conf := "server:\n    address: \"bnet.example:6112\"\n    username: \"alice\"\nhandshake:\n    timeout: 3s\nredis:\n    enabled: true\n    url: \"redis://cache:6379/1\"\ndebug: true\n"
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bnet.example:6112", c.Server.Address)
	assert.Equal(t, "alice", c.Server.Username)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "redis://cache:6379/1", c.Redis.URL)
	assert.True(t, c.Debug)

	opts := c.ClientOptions()
	assert.Equal(t, 3*time.Second, opts.Timeout)
	assert.Zero(t, opts.PollInterval)
	assert.Empty(t, opts.Channel)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "conf.yaml", filepath.Base(path))
	assert.Equal(t, ".bnetchat", filepath.Base(filepath.Dir(path)))
}
