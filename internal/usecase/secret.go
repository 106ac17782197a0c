package usecase

import (
	"crypto/rand"
	"io"
)

// generateKeySecret creates a secure, random, human-readable key secret.
// Format: XXXX-XXXX-XXXX-XXXX
func generateKeySecret() (string, error) {
	// A character set that avoids ambiguous characters like O/0, I/1, l.
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const secretLength = 16

	buffer := make([]byte, secretLength)
	if _, err := io.ReadFull(rand.Reader, buffer); err != nil {
		return "", err
	}

	for i := 0; i < secretLength; i++ {
		buffer[i] = chars[int(buffer[i])%len(chars)]
	}

	return string(buffer[0:4]) + "-" + string(buffer[4:8]) + "-" +
		string(buffer[8:12]) + "-" + string(buffer[12:16]), nil
}
