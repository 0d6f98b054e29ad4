// Package prompt decodes and normalizes sound-effect request text.
package prompt

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// Prompt is a decoded request text. Display preserves the original casing for
// attribution; Key is the normalized form used for library lookups.
type Prompt struct {
	Display string
	Key     string
}

// Empty reports whether the prompt contains no usable text.
func (p Prompt) Empty() bool {
	return p.Key == ""
}

// Decode resolves the effective prompt from a plain and a base64-encoded
// field. The encoded form wins when present; a malformed encoding degrades to
// treating the encoded value as plain text instead of failing the request.
func Decode(raw, encoded string) Prompt {
	encoded = strings.TrimSpace(encoded)
	if encoded != "" {
		if decoded, ok := decodeBase64(encoded); ok {
			return New(decoded)
		}
		return New(encoded)
	}
	return New(raw)
}

// New builds a Prompt from plain text.
func New(text string) Prompt {
	display := strings.TrimSpace(text)
	return Prompt{
		Display: display,
		Key:     Normalize(display),
	}
}

// Normalize returns the library-lookup form of a prompt: trimmed and lowercased.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func decodeBase64(s string) (string, bool) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Senders occasionally strip the padding.
		data, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return "", false
		}
	}
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}
