// Package elevenlabs implements sfx.Generator against the ElevenLabs
// sound-generation API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sfxd/pkg/config"
	"sfxd/pkg/sfx"
	"sfxd/pkg/tracker"
)

const (
	defaultAPIURL = "https://api.elevenlabs.io/v1/sound-generation"

	// Provider-supported clip length range in seconds.
	minDuration = 1.0
	maxDuration = 22.0

	providerName = "elevenlabs"
)

// Client implements sfx.Generator for ElevenLabs. Credential and timeout
// are read from the provider on every call so a config reload takes effect
// without a restart.
type Client struct {
	prov    *config.Provider
	url     string
	client  *http.Client
	tracker *tracker.Tracker
}

// NewClient creates a new ElevenLabs sound-generation client.
func NewClient(prov *config.Provider, t *tracker.Tracker) *Client {
	return &Client{
		prov:    prov,
		url:     defaultAPIURL,
		client:  &http.Client{},
		tracker: t,
	}
}

// requestBody represents the JSON payload for sound generation.
type requestBody struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds"`
	PromptInfluence float64 `json:"prompt_influence"`
}

// Generate issues a single synchronous generation call. There are no retries
// at this layer; retry policy, if any, belongs to the caller.
func (c *Client) Generate(ctx context.Context, prompt string, durationCeiling, influence float64) ([]byte, float64, error) {
	gen := c.prov.Current().Generation
	if gen.APIKey == "" || gen.APIKey == config.APIKeyPlaceholder {
		return nil, 0, sfx.NewError(sfx.CodeAPIKeyNotConfigured, "no generation credential configured")
	}

	timeout := time.Duration(gen.Timeout)
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	durationCeiling = clamp(durationCeiling, minDuration, maxDuration)
	influence = clamp(influence, 0.0, 1.0)

	payload, err := json.Marshal(requestBody{
		Text:            prompt,
		DurationSeconds: durationCeiling,
		PromptInfluence: influence,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", gen.APIKey)
	req.Header.Set("Content-Type", "application/json")

	slog.Info("Generating SFX", "prompt", prompt, "duration_s", durationCeiling, "influence", influence)

	resp, err := c.client.Do(req)
	if err != nil {
		c.tracker.TrackAPIFailure(providerName)
		return nil, 0, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.tracker.TrackAPIFailure(providerName)
		return nil, 0, classifyStatus(resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		c.tracker.TrackAPIFailure(providerName)
		return nil, 0, sfx.NewError(sfx.CodeNetworkError, fmt.Sprintf("reading audio body: %v", err))
	}

	if len(audio) < sfx.MinAudioSize {
		c.tracker.TrackAPIFailure(providerName)
		return nil, 0, sfx.NewError(sfx.CodeUnknownError,
			fmt.Sprintf("generated payload is %d bytes, likely failed synthesis", len(audio)))
	}

	c.tracker.TrackAPISuccess(providerName)
	return audio, durationCeiling, nil
}

// classifyStatus maps a non-success HTTP status to the error taxonomy.
func classifyStatus(status int, body string) *sfx.Error {
	detail := strings.TrimSpace(body)
	if len(detail) > 100 {
		detail = detail[:100]
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return sfx.NewError(sfx.CodeInvalidAPIKey, detail)
	case status == http.StatusTooManyRequests:
		// Quota wording wins over plain rate limiting.
		if strings.Contains(strings.ToLower(body), "quota") {
			return sfx.NewError(sfx.CodeQuotaExceeded, detail)
		}
		return sfx.NewError(sfx.CodeRateLimited, detail)
	case status >= 400 && status < 500:
		return sfx.NewError(sfx.CodeInvalidPrompt, detail)
	default:
		return sfx.NewAPIError(status, detail)
	}
}

// classifyTransport maps a transport-level failure to TIMEOUT or NETWORK_ERROR.
func classifyTransport(err error) *sfx.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return sfx.NewError(sfx.CodeTimeout, err.Error())
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return sfx.NewError(sfx.CodeTimeout, err.Error())
	}
	return sfx.NewError(sfx.CodeNetworkError, err.Error())
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
