package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageKey(t *testing.T) {
	assert.Equal(t, "add_to_cart:11", ProductKey(11))
	assert.Equal(t, "checkout:3f2a", MessageKey(EventTypeCheckout, "3f2a"))
}

func TestParseMessageKey(t *testing.T) {
	eventType, id, err := ParseMessageKey("checkout:session:with:colons")
	require.NoError(t, err)
	assert.Equal(t, EventTypeCheckout, eventType)
	assert.Equal(t, "session:with:colons", id)

	for _, key := range []string{"", "checkout", ":1", "checkout:"} {
		_, _, err := ParseMessageKey(key)
		assert.Error(t, err, key)
	}
}
