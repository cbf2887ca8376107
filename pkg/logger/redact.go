package logger

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// MaskCredential returns a log-safe form of a provider login. Email-shaped
// logins keep their first character and domain; anything else collapses to a
// short hash so runs remain correlatable without leaking the value.
func MaskCredential(value string) string {
	if value == "" {
		return ""
	}

	if at := strings.Index(value, "@"); at > 0 {
		return value[:1] + "***@" + value[at+1:]
	}

	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("cred#%x", sum[:4])
}
