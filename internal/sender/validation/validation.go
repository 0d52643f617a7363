// Package validation provides shared checks for channel implementations.
package validation

import (
	"net/url"
	"strings"
)

// IsValidURL checks if a string is an absolute HTTP/HTTPS URL with a host.
func IsValidURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

// MaskURL shortens a URL for logging so query tokens are not printed whole.
func MaskURL(s string) string {
	if len(s) > 50 {
		return s[:30] + "..." + s[len(s)-10:]
	}
	return s
}
