package intake

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize bounds the payload of one inbound message, in bytes.
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("message is too long")
	ErrInvalidUTF8   = errors.New("message is not valid UTF-8")
)

// SanitizeInput normalizes a text payload before any validator sees it.
// Payloads over limit bytes are rejected, not truncated. Control characters
// are dropped, except line breaks and tabs, and the result is trimmed.
func SanitizeInput(payload string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxInputSize
	}
	if n := len(payload); n > limit {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrInputTooLarge, n, limit)
	}
	if !utf8.ValidString(payload) {
		return "", ErrInvalidUTF8
	}
	return strings.TrimSpace(strings.Map(keepRune, payload)), nil
}

// keepRune is a strings.Map mapping; -1 drops the rune.
func keepRune(r rune) rune {
	switch {
	case r == '\n', r == '\r', r == '\t':
		return r
	case unicode.IsControl(r):
		return -1
	}
	return r
}
