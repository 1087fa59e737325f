package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/straye-as/kosthorys-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_DisabledReturnsNoop(t *testing.T) {
	c := New(context.Background(), &config.RedisConfig{Enabled: false}, zap.NewNop())
	assert.IsType(t, Noop{}, c)

	var out map[string]int
	found, err := c.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Set(context.Background(), "k", map[string]int{"a": 1}))
	assert.NoError(t, c.Delete(context.Background(), "k"))
	assert.NoError(t, c.Close())
}

func TestNew_InvalidURLFallsBackToNoop(t *testing.T) {
	c := New(context.Background(), &config.RedisConfig{Enabled: true, URL: "://bad"}, zap.NewNop())
	assert.IsType(t, Noop{}, c)
}

func TestBudgetStatisticsKey(t *testing.T) {
	id := uuid.MustParse("6f1f3a2e-6a7a-4bfa-9c1c-0a1b2c3d4e5f")
	assert.Equal(t, "budget:6f1f3a2e-6a7a-4bfa-9c1c-0a1b2c3d4e5f:statistics", BudgetStatisticsKey(id))
}

// TestRedisCache_RoundTrip runs against a real server when REDIS_TEST_URL is set
func TestRedisCache_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)

	c := NewRedisCache(redis.NewClient(opt), "kosthorys-test:"+uuid.NewString()+":", time.Minute)
	defer c.Close()
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, c.Set(ctx, "stats", payload{Name: "2240", Count: 3}))

	var got payload
	found, err := c.Get(ctx, "stats", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "2240", Count: 3}, got)

	require.NoError(t, c.Delete(ctx, "stats"))
	found, err = c.Get(ctx, "stats", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
