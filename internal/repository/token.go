package repository

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// sessionTokenBytes はセッショントークンの乱数バイト数。
const sessionTokenBytes = 32

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
func generateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
