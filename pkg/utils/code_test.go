package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCode(t *testing.T) {
	code := RandomCode(22)
	assert.Len(t, code, 22)
	assert.NotContains(t, code, "+")
	assert.NotContains(t, code, "/")
	assert.NotContains(t, code, "=")

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		c := RandomCode(22)
		_, dup := seen[c]
		require.False(t, dup, "codes must not repeat")
		seen[c] = struct{}{}
	}
}

func TestRandomAPIKey(t *testing.T) {
	key := RandomAPIKey()
	assert.True(t, strings.HasPrefix(key, "rmh_"))
	assert.Len(t, key, 4+32)
	assert.NotEqual(t, key, RandomAPIKey())
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword("correct horse battery staple", hash))
	assert.False(t, CheckPassword("wrong password", hash))
	assert.False(t, CheckPassword("correct horse battery staple", "not-a-hash"))
}
