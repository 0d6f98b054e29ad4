// Package testutil provides shared test fixtures.
package testutil

import (
	"encoding/binary"
	"os"
	"testing"
	"time"
)

// WriteWAV writes a silent 16-bit mono PCM WAV file of the given length.
func WriteWAV(t *testing.T, path string, d time.Duration) {
	t.Helper()

	const sampleRate = 8000
	numSamples := int(float64(sampleRate) * d.Seconds())
	dataSize := numSamples * 2

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, []byte("RIFF")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, 1) // mono
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate*2)
	buf = binary.LittleEndian.AppendUint16(buf, 2)
	buf = binary.LittleEndian.AppendUint16(buf, 16)
	buf = append(buf, []byte("data")...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	buf = append(buf, make([]byte, dataSize)...)

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("failed to write wav fixture: %v", err)
	}
}

// WAVBytes returns the raw bytes of a silent WAV clip of the given length.
func WAVBytes(t *testing.T, d time.Duration) []byte {
	t.Helper()

	dir := t.TempDir()
	path := dir + "/clip.wav"
	WriteWAV(t, path, d)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read wav fixture: %v", err)
	}
	return data
}
