package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// passwordCost is the bcrypt work factor for instructor passwords.
const passwordCost = bcrypt.DefaultCost

// HashPassword hashes an instructor password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	return string(hash), err
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
func CheckPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
