// Package auth creates the shared secret the API and GUI use to trust each other.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
)

// TokenEnv is the environment variable the servers read the token from.
const TokenEnv = "FMU_SETTINGS_TOKEN"

// GenerateToken returns a 256-bit token as 64 lowercase hex characters.
func GenerateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating auth token: %w", err)
	}
	sum := sha256.Sum256([]byte(hex.EncodeToString(raw)))
	return hex.EncodeToString(sum[:]), nil
}

// AuthorizedURL is the GUI address a user is sent to, carrying the token in the fragment.
func AuthorizedURL(token, host string, guiPort int) string {
	return fmt.Sprintf("http://%s/#token=%s", net.JoinHostPort(host, strconv.Itoa(guiPort)), token)
}
