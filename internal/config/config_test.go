package config

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Kosthorys API", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "local", cfg.Storage.Mode)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Accounting.Reconcile.Enabled)
	assert.True(t, cfg.Accounting.Ceiling().Equal(decimal.RequireFromString("99999.99")))
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("ACCOUNTING_DIRECTCONTRACTCEILING", "50000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Accounting.Ceiling().Equal(decimal.NewFromInt(50000)))
}

func TestAccountingConfig_CeilingFallback(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "empty", value: ""},
		{name: "garbage", value: "abc"},
		{name: "negative", value: "-5"},
		{name: "zero", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AccountingConfig{DirectContractCeiling: tt.value}
			assert.True(t, a.Ceiling().Equal(DefaultDirectContractCeiling))
		})
	}
}

func TestDurations(t *testing.T) {
	s := ServerConfig{ReadTimeout: 5, WriteTimeout: 6, RequestTimeout: 7}
	assert.Equal(t, 5*time.Second, s.ReadTimeoutDuration())
	assert.Equal(t, 6*time.Second, s.WriteTimeoutDuration())
	assert.Equal(t, 7*time.Second, s.RequestTimeoutDuration())

	d := DatabaseConfig{ConnMaxLifetime: 300}
	assert.Equal(t, 5*time.Minute, d.ConnMaxLifetimeDuration())
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require", d.ConnectionString())
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecretOrEnv(_ context.Context, secretName, _ string) (string, error) {
	if v, ok := f[secretName]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{}
	err := applySecrets(context.Background(), cfg, fakeSecrets{
		"POSTGRES-HOST":     "pg.internal",
		"POSTGRES-PASSWORD": "s3cret",
		"redis-url":         "redis://cache:6379/1",
	})
	require.NoError(t, err)

	assert.Equal(t, "pg.internal", cfg.Database.Host)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Empty(t, cfg.Database.User)
}

func TestApplySecrets_MissingPassword(t *testing.T) {
	cfg := &Config{}
	err := applySecrets(context.Background(), cfg, fakeSecrets{})
	assert.Error(t, err)
}
