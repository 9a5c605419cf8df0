package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Voice selects a speaker preset.
type Voice string

const (
	VoiceMale   Voice = "male"
	VoiceFemale Voice = "female"
)

// Config holds speech-synthesis backend configuration
type Config struct {
	Endpoint    string // base URL
	MaleVoice   string // speaker id, e.g. p313
	FemaleVoice string // speaker id, e.g. p339
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Client calls a Coqui-TTS-compatible synthesis endpoint. The WAV body comes
// back as-is; container transcoding belongs to an external codec.
type Client struct {
	endpoint    string
	maleVoice   string
	femaleVoice string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a new TTS client
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		maleVoice:   cfg.MaleVoice,
		femaleVoice: cfg.FemaleVoice,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      cfg.Logger,
	}
}

// Speak synthesizes text with the given voice preset and returns WAV bytes.
func (c *Client) Speak(ctx context.Context, voice Voice, text string) ([]byte, error) {
	speakerID := c.femaleVoice
	if voice == VoiceMale {
		speakerID = c.maleVoice
	}

	values := url.Values{}
	values.Set("text", text)
	values.Set("speaker_id", speakerID)
	values.Set("style_wav", "")
	values.Set("language_id", "")

	reqURL := fmt.Sprintf("%s/api/tts?%s", c.endpoint, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	c.logger.Debug("Speech synthesized",
		slog.String("speaker_id", speakerID),
		slog.Int("text_length", len(text)),
	)

	return io.ReadAll(resp.Body)
}
