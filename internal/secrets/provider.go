package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Source defines where secrets are loaded from
type Source string

const (
	// SourceEnvironment reads secrets from environment variables
	SourceEnvironment Source = "environment"
	// SourceVault reads secrets from Azure Key Vault
	SourceVault Source = "vault"
	// SourceAuto picks vault outside development and the environment otherwise
	SourceAuto Source = "auto"
)

// ErrSecretNotFound is returned when a secret has no value in the active source
var ErrSecretNotFound = errors.New("secret not found")

// Fetcher retrieves a single secret by name
type Fetcher interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// Provider resolves secrets from the environment or a vault
type Provider struct {
	source  Source
	fetcher Fetcher
	logger  *zap.Logger
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       Source
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ResolveSource turns SourceAuto into a concrete source for the environment
func ResolveSource(source Source, environment string) Source {
	if source != SourceAuto && source != "" {
		return source
	}
	switch environment {
	case "development", "local", "test", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

// NewProvider creates a secrets provider. A vault-backed provider connects
// to Azure Key Vault with the default Azure credential chain.
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := ResolveSource(cfg.Source, cfg.Environment)

	var fetcher Fetcher = envFetcher{}
	if source == SourceVault {
		if cfg.VaultName == "" {
			return nil, fmt.Errorf("vault name required when using vault secret source")
		}
		vault, err := NewVaultClient(&VaultConfig{
			VaultName:    cfg.VaultName,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vault client: %w", err)
		}
		fetcher = vault
	}

	logger.Info("Secrets provider initialized",
		zap.String("source", string(source)),
		zap.String("environment", cfg.Environment),
	)
	return &Provider{source: source, fetcher: fetcher, logger: logger}, nil
}

// NewProviderWithFetcher builds a provider around an existing fetcher
func NewProviderWithFetcher(source Source, fetcher Fetcher, logger *zap.Logger) *Provider {
	return &Provider{source: source, fetcher: fetcher, logger: logger}
}

// GetSecret retrieves a secret from the configured source
func (p *Provider) GetSecret(ctx context.Context, name string) (string, error) {
	return p.fetcher.GetSecret(ctx, name)
}

// GetSecretOrEnv returns envName when it is set, otherwise the secret
// secretName from the configured source
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if v, ok := os.LookupEnv(envName); ok && v != "" {
		p.logger.Debug("Using environment variable override", zap.String("env_name", envName))
		return v, nil
	}
	return p.GetSecret(ctx, secretName)
}

// Source returns the active secret source
func (p *Provider) Source() Source {
	return p.source
}

// IsVaultEnabled reports whether secrets come from Key Vault
func (p *Provider) IsVaultEnabled() bool {
	return p.source == SourceVault
}

type envFetcher struct{}

func (envFetcher) GetSecret(_ context.Context, name string) (string, error) {
	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: environment variable %q not set", ErrSecretNotFound, name)
}
