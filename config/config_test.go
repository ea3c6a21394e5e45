package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("REALTIME_PERSIST_TIMEOUT_MS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, 5*time.Second, cfg.Realtime.PersistTimeout)
	assert.Equal(t, 256, cfg.Realtime.SendBuffer)
	assert.Equal(t, map[string]bool{"*": true}, cfg.Realtime.OriginSet())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("REALTIME_PERSIST_TIMEOUT_MS", "250")
	t.Setenv("REALTIME_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("DATABASE_URL", "postgres://db/showcase")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Realtime.PersistTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Realtime.AllowedOrigins)
	assert.Equal(t, "postgres://db/showcase", cfg.Database.DSN())
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5432", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DSN())
}

func TestValidate(t *testing.T) {
	base := Config{
		JWT:      JWTConfig{Secret: "s"},
		Realtime: RealtimeConfig{PersistTimeout: time.Second, SendBuffer: 1, InboxBuffer: 1},
		Store:    StoreConfig{Driver: StoreMemory},
	}
	require.NoError(t, base.Validate())

	noSecret := base
	noSecret.JWT.Secret = ""
	assert.Error(t, noSecret.Validate())

	noBuffer := base
	noBuffer.Realtime.InboxBuffer = 0
	assert.Error(t, noBuffer.Validate())
}
