package service

import "strings"

// NormalizeEmail trims and lowercases an email address. The normalized form
// is what gets stored and looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
