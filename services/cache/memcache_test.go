package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	key := CooldownKey("test.example.com")

	// Set a value
	err := mc.Set(key, []byte("429"), 1*time.Second)
	assert.NoError(t, err)

	// Get the value
	value, err := mc.Get(key)
	assert.NoError(t, err)
	assert.Equal(t, "429", string(value))

	// Delete the value
	err = mc.Delete(key)
	assert.NoError(t, err)

	// Try to get the deleted value
	_, err = mc.Get(key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Deleting a missing key is not an error
	assert.NoError(t, mc.Delete(key))
}
