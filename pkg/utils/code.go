package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomCode returns a URL-safe random code of the given length,
// used for meeting and instructor codes.
func RandomCode(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic("utils: crypto/rand unavailable: " + err.Error())
	}
	s := base64.RawURLEncoding.EncodeToString(buf)
	return s[:length]
}

// RandomAPIKey returns a new instructor API key with the rmh_ prefix.
func RandomAPIKey() string {
	return "rmh_" + RandomCode(32)
}
