package bootstrap

import (
	"testing"

	"github.com/eelab/labdesk/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirectClient(t *testing.T) {
	client, desc, err := newDirectClient(config.RedisConfig{URI: "localhost:6380", DB: 3})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.Equal(t, "localhost:6380", desc)
	c, ok := client.(*redis.Client)
	require.True(t, ok)
	assert.Equal(t, 3, c.Options().DB)

	client, desc, err = newDirectClient(config.RedisConfig{URI: "redis://:pw@cache:6379/2"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.Equal(t, "cache:6379", desc)

	_, _, err = newDirectClient(config.RedisConfig{URI: "  "})
	assert.Error(t, err)
}

func TestNewSentinelClient(t *testing.T) {
	_, _, err := newSentinelClient(config.RedisConfig{})
	assert.Error(t, err)

	client, desc, err := newSentinelClient(config.RedisConfig{SentinelNodes: []string{"s1:26379"}, SentinelMasterName: "lab"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.Equal(t, "sentinel:lab", desc)
}

func TestNewClusterClient(t *testing.T) {
	client, desc, err := newClusterClient(config.RedisConfig{ClusterNodes: []string{" n1:7000 ", "", "n2:7000"}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.Equal(t, "cluster:n1:7000,n2:7000", desc)

	client, desc, err = newClusterClient(config.RedisConfig{URI: "rediss://user:pw@cfg:6379"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.Equal(t, "cluster:cfg:6379", desc)

	_, _, err = newClusterClient(config.RedisConfig{})
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapesCredentials(t *testing.T) {
	dsn := config.DBConfig{Host: "db", Port: 5432, User: "lab", Password: "p@ss/word", Name: "labdesk", SSLMode: "require"}.DSN()
	assert.Equal(t, "postgres://lab:p%40ss%2Fword@db:5432/labdesk?sslmode=require", dsn)
}
