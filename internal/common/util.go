package common

import "strings"

// WipeByteArray overwrites the contents of b with zeros. Used for passwords
// and one-time codes read from the terminal. Nil-safe.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// BearerValue formats token for the Authorization header. An empty token
// yields an empty value so callers can skip the header.
func BearerValue(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	return BearerScheme + " " + token
}
