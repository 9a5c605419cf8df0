package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxSegmentLen is the largest reply segment the chat front-end accepts.
const maxSegmentLen = 4000

// Config holds text-completion backend configuration
type Config struct {
	Endpoint   string // base URL
	ParamsFile string // JSON file with base sampler parameters
	MaxLength  int
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client calls a KoboldCpp-compatible completion endpoint.
type Client struct {
	endpoint   string
	baseParams map[string]any
	maxLength  int
	httpClient *http.Client
	logger     *slog.Logger
}

// generateResponse is the completion endpoint's reply shape.
type generateResponse struct {
	Results []struct {
		Text string `json:"text"`
	} `json:"results"`
}

const memoryPreamble = "[You are Roleplaying as Bravolith, A Female Artificial Intelligence, " +
	"You are running on limited hardware, A Raspberry 5 8GB, use concise messages " +
	"unless specified and use Emoji when appropriate]\n\n"

// NewClient creates a new text-generation client. The params file holds the
// sampler settings the backend expects alongside every prompt.
func NewClient(cfg *Config) (*Client, error) {
	baseParams := map[string]any{}
	if cfg.ParamsFile != "" {
		data, err := os.ReadFile(cfg.ParamsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read params file: %w", err)
		}
		if err := json.Unmarshal(data, &baseParams); err != nil {
			return nil, fmt.Errorf("failed to parse params file: %w", err)
		}
	}

	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = 320
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		baseParams: baseParams,
		maxLength:  maxLength,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}, nil
}

// Complete sends the user message to the completion backend and returns the
// reply split into segments the front-end can deliver.
func (c *Client) Complete(ctx context.Context, userMessage string) ([]string, error) {
	params := make(map[string]any, len(c.baseParams)+4)
	for k, v := range c.baseParams {
		params[k] = v
	}
	params["max_length"] = c.maxLength
	params["temperature"] = 0.75
	params["memory"] = memoryPreamble
	params["prompt"] = fmt.Sprintf("<start_of_turn>user\n%s<end_of_turn>\n<start_of_turn>model\n", userMessage)

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	reqURL := c.endpoint + "/api/v1/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(decoded.Results) == 0 {
		return nil, fmt.Errorf("completion returned no results")
	}

	text := decoded.Results[0].Text
	text = strings.ReplaceAll(text, "  ", " ")
	text = strings.ReplaceAll(text, "<0x0A>", "\n")

	c.logger.Debug("Completion received",
		slog.Int("length", len(text)),
	)

	return splitIntoSegments(text), nil
}

// splitIntoSegments chunks text into maxSegmentLen pieces.
func splitIntoSegments(text string) []string {
	if text == "" {
		return []string{""}
	}

	var segments []string
	for len(text) > maxSegmentLen {
		segments = append(segments, text[:maxSegmentLen])
		text = text[maxSegmentLen:]
	}
	return append(segments, text)
}
