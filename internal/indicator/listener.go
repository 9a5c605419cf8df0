package indicator

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ubernicholi/bravo-bot/shared/rabbitmq"
)

// Listener consumes busy-signal events from the bus and drives a display.
// Events carry full state, not deltas, so a missed event is corrected by the
// next one on the same channel.
type Listener struct {
	bus     *rabbitmq.Client
	display Display
	logger  *slog.Logger

	mu    sync.Mutex
	state map[string]bool

	stopChan chan struct{}
	doneChan chan struct{}
}

// Display renders the busy state of one channel. Implementations drive the
// actual indicator hardware; LogDisplay just records transitions.
type Display interface {
	Render(channel string, busy bool)
}

// LogDisplay logs every state transition.
type LogDisplay struct {
	Logger *slog.Logger
}

func (d *LogDisplay) Render(channel string, busy bool) {
	d.Logger.Info("Indicator state changed",
		slog.String("channel", channel),
		slog.Bool("busy", busy),
	)
}

// NewListener creates a listener bound to the bus queue.
func NewListener(bus *rabbitmq.Client, display Display, logger *slog.Logger) *Listener {
	return &Listener{
		bus:      bus,
		display:  display,
		logger:   logger,
		state:    make(map[string]bool),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins consuming events. It returns once the consumer is registered;
// delivery handling runs in a background goroutine until Stop or context
// cancellation.
func (l *Listener) Start(ctx context.Context, consumerTag string) error {
	deliveries, err := l.bus.Consume(consumerTag)
	if err != nil {
		return err
	}

	l.logger.Info("Indicator listener started",
		slog.String("consumer_tag", consumerTag),
	)

	go l.dispatch(ctx, deliveries)
	return nil
}

// Stop terminates the delivery loop and waits for it to exit.
func (l *Listener) Stop() {
	close(l.stopChan)
	<-l.doneChan
}

// State reports the last known busy state of a channel.
func (l *Listener) State(channel string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state[channel]
}

func (l *Listener) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer close(l.doneChan)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Indicator listener stopped - context canceled")
			return

		case <-l.stopChan:
			l.logger.Info("Indicator listener stopped")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				l.logger.Warn("Bus delivery channel closed")
				return
			}
			l.handle(delivery.Body)
		}
	}
}

// handle applies one event. Malformed payloads are logged and dropped; the
// bus carries only transient signals, so there is nothing to retry.
func (l *Listener) handle(body []byte) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		l.logger.Warn("Discarding malformed indicator event",
			slog.String("error", err.Error()),
		)
		return
	}

	if event.Channel == "" {
		l.logger.Warn("Discarding indicator event without channel")
		return
	}

	l.mu.Lock()
	previous, known := l.state[event.Channel]
	l.state[event.Channel] = event.Busy
	l.mu.Unlock()

	if known && previous == event.Busy {
		return
	}

	l.display.Render(event.Channel, event.Busy)
}
