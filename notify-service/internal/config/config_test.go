package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8095, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.PubSub.Driver)
	assert.True(t, cfg.Policy.RequireAuth)
	assert.Equal(t, "user", cfg.Policy.ActingIdentity)
	assert.Equal(t, "Radio Discussions", cfg.Thread.Name)
	assert.Equal(t, "everyone", cfg.Thread.WhoCanPost)
	assert.Equal(t, 10*time.Second, cfg.Gateway.CallTimeout)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.False(t, cfg.Identity.DevMode)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := `
jwt:
  secret: from-file
policy:
  acting_identity: service
  service_id: svc-radio
seed:
  rooms:
    - room_id: r1
      organization_id: org1
  grants:
    - organization_id: org1
      actor_kind: service
      actor_id: svc-radio
      capability: threads:write
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.yaml"), []byte(yaml), 0o600))
	chdir(t, dir)
	t.Setenv("REQUIRED_LEVEL", "admin")
	t.Setenv("GATEWAY_CALL_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWT.Secret)
	assert.Equal(t, "service", cfg.Policy.ActingIdentity)
	assert.Equal(t, "svc-radio", cfg.Policy.ServiceID)
	assert.Equal(t, "admin", cfg.Policy.RequiredLevel)
	assert.Equal(t, 3*time.Second, cfg.Gateway.CallTimeout)
	require.Len(t, cfg.Seed.Rooms, 1)
	assert.Equal(t, "org1", cfg.Seed.Rooms[0].OrganizationID)
	require.Len(t, cfg.Seed.Grants, 1)
	assert.Equal(t, "threads:write", cfg.Seed.Grants[0].Capability)
}

func TestValidate(t *testing.T) {
	cfg := &Config{JWT: JWTConfig{Secret: "x"}, Policy: PolicyConfig{ActingIdentity: "service"}}
	assert.Error(t, cfg.Validate())

	cfg.Policy.ServiceID = "svc"
	assert.NoError(t, cfg.Validate())

	cfg.Policy.ActingIdentity = "robot"
	assert.Error(t, cfg.Validate())

	cfg = &Config{Policy: PolicyConfig{ActingIdentity: "user"}}
	assert.Error(t, cfg.Validate())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
