package session

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize bounds a single question in bytes.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "RAPPORT_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("question is too long")
	ErrInvalidUTF8   = errors.New("question is not valid UTF-8 text")
)

// SanitizeInput prepares a typed question before it becomes pending input.
// Terminal escape sequences and other control characters are dropped so they
// never reach the transcript or a renderer; newlines and tabs survive.
func SanitizeInput(question string) (string, error) {
	if limit := maxInputSize(); len(question) > limit {
		// The question is rejected whole; a truncated question would be answered wrong.
		return "", fmt.Errorf("%w: %d bytes, limit is %d", ErrInputTooLarge, len(question), limit)
	}
	if !utf8.ValidString(question) {
		return "", ErrInvalidUTF8
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, question), nil
}

func maxInputSize() int {
	size, err := strconv.Atoi(os.Getenv(EnvMaxInputSize))
	if err != nil || size <= 0 {
		return DefaultMaxInputSize
	}
	return size
}
