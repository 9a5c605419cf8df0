package indicator

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDisplay struct {
	transitions []Event
}

func (d *recordingDisplay) Render(channel string, busy bool) {
	d.transitions = append(d.transitions, Event{Channel: channel, Busy: busy})
}

func newTestListener(display Display) *Listener {
	return NewListener(nil, display, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func eventBody(t *testing.T, channel string, busy bool) []byte {
	t.Helper()
	body, err := json.Marshal(Event{Channel: channel, Busy: busy, Timestamp: time.Now()})
	require.NoError(t, err)
	return body
}

func TestListener_HandleRendersTransitions(t *testing.T) {
	display := &recordingDisplay{}
	l := newTestListener(display)

	l.handle(eventBody(t, ChannelBot, true))
	l.handle(eventBody(t, ChannelBot, false))
	l.handle(eventBody(t, ChannelBackend, true))

	require.Len(t, display.transitions, 3)
	assert.Equal(t, ChannelBot, display.transitions[0].Channel)
	assert.True(t, display.transitions[0].Busy)
	assert.False(t, display.transitions[1].Busy)
	assert.Equal(t, ChannelBackend, display.transitions[2].Channel)

	assert.False(t, l.State(ChannelBot))
	assert.True(t, l.State(ChannelBackend))
}

func TestListener_HandleDeduplicatesRepeats(t *testing.T) {
	display := &recordingDisplay{}
	l := newTestListener(display)

	l.handle(eventBody(t, ChannelBot, true))
	l.handle(eventBody(t, ChannelBot, true))
	l.handle(eventBody(t, ChannelBot, true))

	assert.Len(t, display.transitions, 1, "repeated state must not re-render")
}

func TestListener_HandleDropsMalformedEvents(t *testing.T) {
	display := &recordingDisplay{}
	l := newTestListener(display)

	l.handle([]byte("{not json"))
	l.handle(eventBody(t, "", true))

	assert.Empty(t, display.transitions)
}
