package util

import (
	"errors"
	"strings"
)

// SanitizeFileName makes an uploaded file name safe for use as a storage
// key segment. Traversal sequences are rejected outright; path separators
// and NUL bytes become underscores so the name can never address outside
// its analysis prefix.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" || strings.Contains(s, "..") {
		return "", errors.New("invalid file name")
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		default:
			return r
		}
	}, s)
	return s, nil
}
