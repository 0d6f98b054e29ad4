// Package media inspects audio containers for playback metadata.
package media

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// FallbackDuration is the assumed clip length when a container cannot be
// decoded. Duration consumers should degrade to it rather than fail.
const FallbackDuration = 10 * time.Second

// Duration returns the duration of the audio file at the given path.
// It decodes the container and derives the duration from its sample length.
func Duration(path string) (time.Duration, error) {
	streamer, format, err := Decode(path)
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}

// Decode opens and decodes an audio file, trying MP3 first and WAV second.
func Decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to open audio file: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err == nil {
		return streamer, format, nil
	}

	// Reopen for the WAV attempt (a failed MP3 decode leaves the reader
	// position uncertain).
	f.Close()
	f, err = os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to reopen audio file: %w", err)
	}

	streamer, format, err = wav.Decode(f)
	if err != nil {
		f.Close()
		slog.Debug("Media: file is neither MP3 nor WAV", "path", path, "error", err)
		return nil, beep.Format{}, fmt.Errorf("unsupported audio container: %w", err)
	}

	return streamer, format, nil
}
