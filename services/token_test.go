package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInvitationToken(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		token, err := generateInvitationToken()
		require.NoError(t, err)
		require.Len(t, token, 64)

		for _, c := range token {
			alnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
			require.True(t, alnum, "unexpected character %q in token", c)
		}

		assert.False(t, seen[token], "token collision")
		seen[token] = true
	}
}
