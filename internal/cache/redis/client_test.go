package redis

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfigOptions(t *testing.T) {
	opts := ClientConfig{
		Addr:       "cache.internal:6379",
		Password:   "pw",
		DB:         2,
		PoolSize:   8,
		MaxRetries: 3,
	}.options()

	assert.Equal(t, "cache.internal:6379", opts.Addr)
	assert.Equal(t, "arbot", opts.ClientName)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 8, opts.PoolSize)
	assert.Nil(t, opts.TLSConfig)
}

func TestClientConfigOptionsTLS(t *testing.T) {
	opts := ClientConfig{Addr: "cache.internal:6380", TLSEnabled: true}.options()
	require.NotNil(t, opts.TLSConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), opts.TLSConfig.MinVersion)
}
