package registrations

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// Code prefixes for human-facing registration codes.
const (
	CodePrefixCourse = "REG"
	CodePrefixEvent  = "EVT"
)

// NewCode returns prefix-XXXXXXXX with eight uppercase hex characters.
func NewCode(prefix string) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("registration code entropy: %w", err)
	}
	return prefix + "-" + strings.ToUpper(hex.EncodeToString(b)), nil
}
