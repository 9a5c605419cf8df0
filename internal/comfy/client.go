package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config holds ComfyUI client configuration
type Config struct {
	Endpoint    string // host:port, no scheme
	ExecTimeout time.Duration
	Logger      *slog.Logger
}

// Client runs generation jobs against a ComfyUI instance. The backend sits
// behind a single execution slot, so one submit-and-poll cycle must finish
// before the next begins; the mutex serializes every Generate call issued by
// this process.
type Client struct {
	endpoint    string
	execTimeout time.Duration
	httpClient  *http.Client
	dialer      *websocket.Dialer
	logger      *slog.Logger

	mu sync.Mutex
}

// NewClient creates a new ComfyUI client
func NewClient(cfg *Config) *Client {
	execTimeout := cfg.ExecTimeout
	if execTimeout <= 0 {
		execTimeout = 10 * time.Minute
	}

	return &Client{
		endpoint:    cfg.Endpoint,
		execTimeout: execTimeout,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Generate runs one workflow to completion and returns the artifacts of the
// first node (in ascending node-identifier order) that produced outputs
// under kind. The event-stream connection is closed on every exit path.
func (c *Client) Generate(ctx context.Context, kind MediaKind, wf Workflow) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clientID := uuid.NewString()
	log := c.logger.With(slog.String("client_id", clientID))

	wsURL := fmt.Sprintf("ws://%s/ws?clientId=%s", c.endpoint, clientID)
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connect event stream: %w", err)
	}
	defer conn.Close()

	promptID, err := c.queuePrompt(ctx, wf, clientID)
	if err != nil {
		return nil, fmt.Errorf("queue prompt: %w", err)
	}

	log = log.With(slog.String("prompt_id", promptID))
	log.Info("Workflow submitted, waiting for completion",
		slog.String("kind", string(kind)),
		slog.Duration("timeout", c.execTimeout),
	)

	if err := c.waitForCompletion(conn, promptID); err != nil {
		return nil, fmt.Errorf("execution wait: %w", err)
	}

	record, err := c.history(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	artifacts, err := c.collectArtifacts(ctx, record, kind)
	if err != nil {
		return nil, err
	}

	log.Info("Generation complete",
		slog.String("kind", string(kind)),
		slog.Int("artifacts", len(artifacts)),
	)

	return artifacts, nil
}

// waitForCompletion blocks on the event stream until the executing event
// with a null node and a matching prompt id arrives. Binary preview frames
// and events for other prompts are discarded, not buffered.
func (c *Client) waitForCompletion(conn *websocket.Conn, promptID string) error {
	deadline := time.Now().Add(c.execTimeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return ErrExecutionTimeout
			}
			return fmt.Errorf("read event frame: %w", err)
		}

		if msgType != websocket.TextMessage {
			continue // binary preview frame
		}

		var event wsEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("decode event frame: %w", err)
		}

		if event.Type == "executing" && event.Data.Node == nil && event.Data.PromptID == promptID {
			return nil
		}
	}
}

// collectArtifacts walks the history outputs in sorted node order and
// fetches every artifact of the first node that declared outputs under
// kind. Map iteration order would make "the" result nondeterministic for
// multi-output graphs, hence the sort.
func (c *Client) collectArtifacts(ctx context.Context, record *historyRecord, kind MediaKind) ([][]byte, error) {
	nodeIDs := make([]string, 0, len(record.Outputs))
	for nodeID := range record.Outputs {
		nodeIDs = append(nodeIDs, nodeID)
	}
	sort.Slice(nodeIDs, func(i, j int) bool {
		return lessNodeID(nodeIDs[i], nodeIDs[j])
	})

	for _, nodeID := range nodeIDs {
		raw, ok := record.Outputs[nodeID][string(kind)]
		if !ok {
			continue
		}

		var descriptors []OutputDescriptor
		if err := json.Unmarshal(raw, &descriptors); err != nil {
			return nil, fmt.Errorf("decode outputs of node %s: %w", nodeID, err)
		}
		if len(descriptors) == 0 {
			continue
		}

		artifacts := make([][]byte, 0, len(descriptors))
		for _, desc := range descriptors {
			data, err := c.fetchFile(ctx, desc)
			if err != nil {
				return nil, fmt.Errorf("fetch artifact %s: %w", desc.Filename, err)
			}
			artifacts = append(artifacts, data)
		}
		return artifacts, nil
	}

	return nil, ErrEmptyResult
}

// lessNodeID orders node identifiers numerically when both parse ("9" before
// "102"), falling back to plain string order.
func lessNodeID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// queuePrompt submits the workflow and returns the prompt_id correlation
// token from the acknowledgment.
func (c *Client) queuePrompt(ctx context.Context, wf Workflow, clientID string) (string, error) {
	body, err := json.Marshal(queueRequest{Prompt: wf, ClientID: clientID})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	reqURL := fmt.Sprintf("http://%s/prompt", c.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var ack queueResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if ack.PromptID == "" {
		return "", fmt.Errorf("acknowledgment missing prompt_id")
	}

	return ack.PromptID, nil
}

// history retrieves the execution record for a finished prompt.
func (c *Client) history(ctx context.Context, promptID string) (*historyRecord, error) {
	reqURL := fmt.Sprintf("http://%s/history/%s", c.endpoint, url.PathEscape(promptID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var records map[string]historyRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	record, ok := records[promptID]
	if !ok {
		return nil, fmt.Errorf("history has no entry for prompt %s", promptID)
	}

	return &record, nil
}

// fetchFile retrieves one artifact from the backend's content store.
func (c *Client) fetchFile(ctx context.Context, desc OutputDescriptor) ([]byte, error) {
	values := url.Values{}
	values.Set("filename", desc.Filename)
	values.Set("subfolder", desc.Subfolder)
	values.Set("type", desc.Type)

	reqURL := fmt.Sprintf("http://%s/view?%s", c.endpoint, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}
