package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecipientToken(t *testing.T) {
	token, err := NewRecipientToken()
	require.NoError(t, err)

	assert.Len(t, token, 28)
	assert.False(t, strings.ContainsAny(token, "+/="), "token must be URL safe")
}

func TestNewRecipientTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token, err := NewRecipientToken()
		require.NoError(t, err)
		assert.False(t, seen[token])
		seen[token] = true
	}
}
