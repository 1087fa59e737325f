package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVault struct {
	values map[string]string
	calls  int
}

func (f *fakeVault) GetSecret(_ context.Context, name, _ string, _ *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.calls++
	v, ok := f.values[name]
	if !ok {
		return azsecrets.GetSecretResponse{}, errors.New("SecretNotFound")
	}
	resp := azsecrets.GetSecretResponse{}
	resp.Value = &v
	return resp, nil
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		source Source
		env    string
		want   Source
	}{
		{SourceAuto, "development", SourceEnvironment},
		{SourceAuto, "", SourceEnvironment},
		{SourceAuto, "production", SourceVault},
		{SourceAuto, "staging", SourceVault},
		{SourceEnvironment, "production", SourceEnvironment},
		{SourceVault, "development", SourceVault},
	}
	for _, tt := range tests {
		t.Run(string(tt.source)+"/"+tt.env, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveSource(tt.source, tt.env))
		})
	}
}

func TestProvider_EnvironmentSource(t *testing.T) {
	p, err := NewProvider(&ProviderConfig{Source: SourceEnvironment}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, p.IsVaultEnabled())

	t.Setenv("KOSTHORYS_TEST_SECRET", "s3cret")
	v, err := p.GetSecret(context.Background(), "KOSTHORYS_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	_, err = p.GetSecret(context.Background(), "KOSTHORYS_MISSING_SECRET")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestProvider_GetSecretOrEnv(t *testing.T) {
	vault := newVaultClient(&fakeVault{values: map[string]string{"POSTGRES-PASSWORD": "from-vault"}}, &VaultConfig{}, zap.NewNop())
	p := NewProviderWithFetcher(SourceVault, vault, zap.NewNop())

	v, err := p.GetSecretOrEnv(context.Background(), "POSTGRES-PASSWORD", "KOSTHORYS_TEST_DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "from-vault", v)

	t.Setenv("KOSTHORYS_TEST_DB_PASSWORD", "from-env")
	v, err = p.GetSecretOrEnv(context.Background(), "POSTGRES-PASSWORD", "KOSTHORYS_TEST_DB_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
}

func TestVaultClient_Cache(t *testing.T) {
	fake := &fakeVault{values: map[string]string{"redis-url": "redis://cache:6379/0"}}
	client := newVaultClient(fake, &VaultConfig{CacheEnabled: true, CacheTTL: time.Minute}, zap.NewNop())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		v, err := client.GetSecret(context.Background(), "redis-url")
		require.NoError(t, err)
		assert.Equal(t, "redis://cache:6379/0", v)
	}
	assert.Equal(t, 1, fake.calls)

	now = now.Add(2 * time.Minute)
	_, err := client.GetSecret(context.Background(), "redis-url")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls)

	client.ClearCache()
	_, err = client.GetSecret(context.Background(), "redis-url")
	require.NoError(t, err)
	assert.Equal(t, 3, fake.calls)

	_, err = client.GetSecret(context.Background(), "missing")
	assert.Error(t, err)
}
