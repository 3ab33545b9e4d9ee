package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	k := Key("seller", "red shoes")
	assert.True(t, strings.HasPrefix(k, keyPrefix))
	assert.Equal(t, k, Key("seller", "red shoes"))
	assert.NotEqual(t, k, Key("seller", "blue shoes"))
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}

func TestNewRedisCacheBadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not a url", time.Minute)
	require.Error(t, err)
}
