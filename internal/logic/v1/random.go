package v1

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenBytes is the entropy of bearer tokens and session identifiers (256 bits).
const tokenBytes = 32

// newRandomHex returns tokenBytes of crypto/rand entropy as lowercase hex.
func newRandomHex() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// wellFormedToken reports whether s looks like a token issued by newRandomHex.
func wellFormedToken(s string) bool {
	if len(s) != tokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
