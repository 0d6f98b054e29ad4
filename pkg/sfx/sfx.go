// Package sfx defines the sound-generation contract and its error taxonomy.
package sfx

import (
	"context"
)

const (
	// MinAudioSize is the minimum size of a generated clip (1KB).
	// Smaller payloads are likely failed synthesis attempts.
	MinAudioSize = 1024
)

// Generator defines the interface for remote sound-effect synthesis.
type Generator interface {
	// Generate synthesizes audio for the prompt. durationCeiling is the
	// requested clip length in seconds and influence weights how literally
	// the provider follows the prompt; both are clamped to the provider's
	// supported range. Returns the audio bytes and the declared duration in
	// seconds, or an *Error classifying the failure.
	Generate(ctx context.Context, prompt string, durationCeiling, influence float64) ([]byte, float64, error)
}
