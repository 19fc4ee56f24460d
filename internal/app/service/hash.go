package service

import (
	"crypto/rand"
	"fmt"
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// DefaultHashLength is the length of generated link hashes. Eight base62
// characters give ~2^47 values, so collisions stay rare and the create path
// just retries when one happens.
const DefaultHashLength = 8

// NewHash returns a random base62 token of the given length.
func NewHash(length int) (string, error) {
	if length <= 0 {
		length = DefaultHashLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate hash: %w", err)
	}
	for i, b := range buf {
		buf[i] = base62Alphabet[int(b)%len(base62Alphabet)]
	}
	return string(buf), nil
}
