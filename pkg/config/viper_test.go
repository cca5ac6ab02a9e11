package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	v, err := Load(t.TempDir(), "absent")
	require.NoError(t, err)

	v.SetDefault("server.port", 8095)
	assert.Equal(t, 8095, v.GetInt("server.port"))
}

func TestLoadReadsYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "svc.yaml"), []byte("server:\n  port: 9000\npolicy:\n  required_level: admin\n"), 0o600))

	v, err := Load(dir, "svc")
	require.NoError(t, err)
	assert.Equal(t, 9000, v.GetInt("server.port"))

	t.Setenv("NOTIFY_REQUIRED_LEVEL", "customer")
	require.NoError(t, BindEnvs(v, map[string]string{"policy.required_level": "NOTIFY_REQUIRED_LEVEL"}))
	assert.Equal(t, "customer", v.GetString("policy.required_level"))
}

func TestDuration(t *testing.T) {
	v, err := Load(t.TempDir(), "absent")
	require.NoError(t, err)

	v.Set("a", "250ms")
	v.Set("b", "soon")
	v.Set("c", "0s")

	assert.Equal(t, 250*time.Millisecond, Duration(v, "a", time.Second))
	assert.Equal(t, time.Second, Duration(v, "b", time.Second))
	assert.Equal(t, time.Second, Duration(v, "c", time.Second))
	assert.Equal(t, time.Second, Duration(v, "missing", time.Second))
}
