/*
Package utils provides helper functions for the HN mirror backend.
*/
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	return time.Now().Format("20060102150405") + "-" + RandomString(8)
}

// RandomString generates a random hex string of the given length
func RandomString(length int) string {
	b := make([]byte, (length+1)/2)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("150405.000000000")[:length]
	}
	return hex.EncodeToString(b)[:length]
}
