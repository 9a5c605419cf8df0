package comfy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPromptID = "prompt-abc123"

// wsFrame is one scripted frame the fake backend pushes on the event stream.
type wsFrame struct {
	messageType int
	payload     []byte
}

func textFrame(t *testing.T, event map[string]any) wsFrame {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return wsFrame{messageType: websocket.TextMessage, payload: data}
}

func executingEvent(promptID string, node *string) map[string]any {
	return map[string]any{
		"type": "executing",
		"data": map[string]any{
			"node":      node,
			"prompt_id": promptID,
		},
	}
}

// fakeBackend serves the queue, event-stream, history and view endpoints of
// a generation backend.
type fakeBackend struct {
	t        *testing.T
	frames   []wsFrame
	history  map[string]any
	files    map[string][]byte
	upgrader websocket.Upgrader

	promptRequests int
	viewRequests   []string
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(f.t, r.URL.Query().Get("clientId"))

		conn, err := f.upgrader.Upgrade(w, r, nil)
		require.NoError(f.t, err)
		defer conn.Close()

		for _, frame := range f.frames {
			if err := conn.WriteMessage(frame.messageType, frame.payload); err != nil {
				return
			}
		}

		// Hold the connection open; the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	mux.HandleFunc("/prompt", func(w http.ResponseWriter, r *http.Request) {
		f.promptRequests++
		require.Equal(f.t, http.MethodPost, r.Method)

		var req struct {
			Prompt   map[string]any `json:"prompt"`
			ClientID string         `json:"client_id"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(f.t, req.ClientID)
		require.NotEmpty(f.t, req.Prompt)

		json.NewEncoder(w).Encode(map[string]string{"prompt_id": testPromptID})
	})

	mux.HandleFunc("/history/", func(w http.ResponseWriter, r *http.Request) {
		promptID := strings.TrimPrefix(r.URL.Path, "/history/")
		require.Equal(f.t, testPromptID, promptID)

		json.NewEncoder(w).Encode(map[string]any{promptID: f.history})
	})

	mux.HandleFunc("/view", func(w http.ResponseWriter, r *http.Request) {
		filename := r.URL.Query().Get("filename")
		f.viewRequests = append(f.viewRequests, filename)

		data, ok := f.files[filename]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	})

	return mux
}

// newTestClient starts the fake backend and returns a client pointed at it.
func newTestClient(t *testing.T, backend *fakeBackend, execTimeout time.Duration) *Client {
	t.Helper()

	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	return NewClient(&Config{
		Endpoint:    strings.TrimPrefix(srv.URL, "http://"),
		ExecTimeout: execTimeout,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func testWorkflow() Workflow {
	return Workflow{
		"3": Node{"inputs": map[string]any{"seed": float64(1)}},
	}
}

func outputsNode(kind MediaKind, descriptors ...OutputDescriptor) map[string]any {
	return map[string]any{string(kind): descriptors}
}

func TestGenerate_Success(t *testing.T) {
	runningNode := "7"
	backend := &fakeBackend{
		t: t,
		frames: []wsFrame{
			textFrame(t, executingEvent(testPromptID, &runningNode)),
			textFrame(t, executingEvent(testPromptID, nil)),
		},
		history: map[string]any{
			"outputs": map[string]any{
				"9": outputsNode(KindImages,
					OutputDescriptor{Filename: "a.png", Subfolder: "", Type: "output"},
					OutputDescriptor{Filename: "b.png", Subfolder: "", Type: "output"},
				),
			},
		},
		files: map[string][]byte{
			"a.png": []byte("artifact-a"),
			"b.png": []byte("artifact-b"),
		},
	}

	client := newTestClient(t, backend, time.Minute)

	artifacts, err := client.Generate(context.Background(), KindImages, testWorkflow())
	require.NoError(t, err)

	require.Len(t, artifacts, 2)
	assert.Equal(t, []byte("artifact-a"), artifacts[0])
	assert.Equal(t, []byte("artifact-b"), artifacts[1])
	assert.Equal(t, 1, backend.promptRequests)
}

func TestGenerate_IgnoresForeignAndBinaryFrames(t *testing.T) {
	backend := &fakeBackend{
		t: t,
		frames: []wsFrame{
			{messageType: websocket.BinaryMessage, payload: []byte{0xde, 0xad}},
			textFrame(t, executingEvent("someone-elses-prompt", nil)),
			textFrame(t, map[string]any{"type": "progress", "data": map[string]any{}}),
			textFrame(t, executingEvent(testPromptID, nil)),
		},
		history: map[string]any{
			"outputs": map[string]any{
				"9": outputsNode(KindImages, OutputDescriptor{Filename: "a.png", Type: "output"}),
			},
		},
		files: map[string][]byte{"a.png": []byte("artifact-a")},
	}

	client := newTestClient(t, backend, time.Minute)

	artifacts, err := client.Generate(context.Background(), KindImages, testWorkflow())
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
}

func TestGenerate_PicksLowestNodeWithOutputs(t *testing.T) {
	backend := &fakeBackend{
		t: t,
		frames: []wsFrame{
			textFrame(t, executingEvent(testPromptID, nil)),
		},
		history: map[string]any{
			"outputs": map[string]any{
				// "102" sorts after "9" numerically even though it sorts
				// before it lexically.
				"102": outputsNode(KindImages, OutputDescriptor{Filename: "late.png", Type: "output"}),
				"9":   outputsNode(KindImages, OutputDescriptor{Filename: "early.png", Type: "output"}),
				"5":   map[string]any{"text": []string{"not media"}},
			},
		},
		files: map[string][]byte{
			"early.png": []byte("early"),
			"late.png":  []byte("late"),
		},
	}

	client := newTestClient(t, backend, time.Minute)

	artifacts, err := client.Generate(context.Background(), KindImages, testWorkflow())
	require.NoError(t, err)

	require.Len(t, artifacts, 1)
	assert.Equal(t, []byte("early"), artifacts[0])
	assert.Equal(t, []string{"early.png"}, backend.viewRequests)
}

func TestGenerate_EmptyOutputs(t *testing.T) {
	backend := &fakeBackend{
		t: t,
		frames: []wsFrame{
			textFrame(t, executingEvent(testPromptID, nil)),
		},
		history: map[string]any{
			"outputs": map[string]any{
				"9": map[string]any{string(KindImages): []OutputDescriptor{}},
			},
		},
	}

	client := newTestClient(t, backend, time.Minute)

	_, err := client.Generate(context.Background(), KindImages, testWorkflow())
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestGenerate_KindMismatchIsEmpty(t *testing.T) {
	backend := &fakeBackend{
		t: t,
		frames: []wsFrame{
			textFrame(t, executingEvent(testPromptID, nil)),
		},
		history: map[string]any{
			"outputs": map[string]any{
				"9": outputsNode(KindImages, OutputDescriptor{Filename: "a.png", Type: "output"}),
			},
		},
		files: map[string][]byte{"a.png": []byte("artifact-a")},
	}

	client := newTestClient(t, backend, time.Minute)

	_, err := client.Generate(context.Background(), KindAudio, testWorkflow())
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestGenerate_ExecutionTimeout(t *testing.T) {
	// No completion event ever arrives.
	backend := &fakeBackend{
		t:      t,
		frames: nil,
	}

	client := newTestClient(t, backend, 100*time.Millisecond)

	start := time.Now()
	_, err := client.Generate(context.Background(), KindImages, testWorkflow())
	assert.ErrorIs(t, err, ErrExecutionTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGenerate_TimeoutReleasesSlot(t *testing.T) {
	runningFrames := []wsFrame{}
	backend := &fakeBackend{
		t:      t,
		frames: runningFrames,
	}

	client := newTestClient(t, backend, 50*time.Millisecond)

	_, err := client.Generate(context.Background(), KindImages, testWorkflow())
	require.ErrorIs(t, err, ErrExecutionTimeout)

	// A failed run must not leave the client's slot held.
	done := make(chan error, 1)
	go func() {
		_, err := client.Generate(context.Background(), KindImages, testWorkflow())
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrExecutionTimeout)
	case <-time.After(5 * time.Second):
		t.Fatal("second Generate call never ran; execution slot leaked")
	}
}

func TestGenerate_QueueError(t *testing.T) {
	mux := http.NewServeMux()
	upgrader := websocket.Upgrader{}
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	mux.HandleFunc("/prompt", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "node graph invalid", http.StatusBadRequest)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(&Config{
		Endpoint: strings.TrimPrefix(srv.URL, "http://"),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := client.Generate(context.Background(), KindImages, testWorkflow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue prompt")
}

func TestGenerate_DialError(t *testing.T) {
	client := NewClient(&Config{
		Endpoint: "127.0.0.1:1", // nothing listens here
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := client.Generate(context.Background(), KindImages, testWorkflow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect event stream")
}

func TestLessNodeID(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "numeric ascending", a: "9", b: "102", want: true},
		{name: "numeric descending", a: "102", b: "9", want: false},
		{name: "equal", a: "7", b: "7", want: false},
		{name: "non-numeric falls back to string order", a: "final", b: "save", want: true},
		{name: "mixed falls back to string order", a: "10", b: "save", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lessNodeID(tt.a, tt.b))
		})
	}
}

func TestGenerate_ArtifactFetchError(t *testing.T) {
	backend := &fakeBackend{
		t: t,
		frames: []wsFrame{
			textFrame(t, executingEvent(testPromptID, nil)),
		},
		history: map[string]any{
			"outputs": map[string]any{
				"9": outputsNode(KindImages, OutputDescriptor{Filename: "missing.png", Type: "output"}),
			},
		},
		files: map[string][]byte{},
	}

	client := newTestClient(t, backend, time.Minute)

	_, err := client.Generate(context.Background(), KindImages, testWorkflow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("fetch artifact %s", "missing.png"))
}
