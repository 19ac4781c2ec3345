package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 5, cfg.Warehouse.DefaultCorridorCount)
	assert.Equal(t, 10, cfg.Warehouse.DefaultCellCount)
	assert.Equal(t, 5*time.Second, cfg.Warehouse.LockTimeout)
	assert.False(t, cfg.AMQP.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)

	// デフォルトはそのままバリデーションを通過する
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.example.com")
	t.Setenv("DB_PORT", "15432")
	t.Setenv("WAREHOUSE_DEFAULT_CORRIDOR_COUNT", "8")
	t.Setenv("WAREHOUSE_LOCK_TIMEOUT", "250ms")
	t.Setenv("AMQP_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := defaults()
	applyEnv(cfg)

	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 15432, cfg.Database.Port)
	assert.Equal(t, 8, cfg.Warehouse.DefaultCorridorCount)
	assert.Equal(t, 250*time.Millisecond, cfg.Warehouse.LockTimeout)
	assert.True(t, cfg.AMQP.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestApplyEnvIgnoresMalformedValues(t *testing.T) {
	// 解析できない値はデフォルトのまま
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("WAREHOUSE_LOCK_TIMEOUT", "forever")

	cfg := defaults()
	applyEnv(cfg)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5*time.Second, cfg.Warehouse.LockTimeout)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"空のデータベースホスト", func(c *Config) { c.Database.Host = "" }},
		{"範囲外のデータベースポート", func(c *Config) { c.Database.Port = 70000 }},
		{"空のデータベースユーザー", func(c *Config) { c.Database.User = "" }},
		{"範囲外のAPIポート", func(c *Config) { c.API.Port = 0 }},
		{"コリドー数ゼロ", func(c *Config) { c.Warehouse.DefaultCorridorCount = 0 }},
		{"コリドー数上限超過", func(c *Config) { c.Warehouse.DefaultCorridorCount = 101 }},
		{"セル数上限超過", func(c *Config) { c.Warehouse.DefaultCellCount = 1001 }},
		{"ロックタイムアウトゼロ", func(c *Config) { c.Warehouse.LockTimeout = 0 }},
		{"AMQP有効でURL未指定", func(c *Config) { c.AMQP.Enabled = true; c.AMQP.URL = "" }},
		{"無効なログレベル", func(c *Config) { c.Logging.Level = "verbose" }},
		{"無効なログフォーマット", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := defaults()
	cfg.Database.Password = "secret"

	dsn := cfg.DSN()
	assert.Equal(t, "host=localhost port=5432 user=warehouse password=secret dbname=warehouse_db sslmode=disable", dsn)
}

func TestLoadAppliesEnvOnTopOfDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
}
