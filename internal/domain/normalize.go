package domain

import (
	"errors"
	"strings"
)

// MinUsernameLength is the minimum username length after trimming.
const MinUsernameLength = 3

// NormalizeUsername trims leading/trailing whitespace and validates the
// result. Usernames are case-sensitive; no case folding happens here.
func NormalizeUsername(s string) (string, error) {
	u := strings.TrimSpace(s)
	if u == "" {
		return "", errors.New("must be non-empty")
	}
	if len([]rune(u)) < MinUsernameLength {
		return "", errors.New("must be at least 3 characters")
	}
	return u, nil
}
