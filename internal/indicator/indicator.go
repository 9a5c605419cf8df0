package indicator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ubernicholi/bravo-bot/shared/rabbitmq"
)

// Well-known indicator channels. Each maps to one physical light on the
// indicator hardware.
const (
	ChannelBot     = "telegram"
	ChannelBackend = "monolith"
	ChannelWebcam  = "webcam"
)

// Event is one busy-signal transition published on the bus.
type Event struct {
	Channel   string    `json:"channel"`
	Busy      bool      `json:"busy"`
	Timestamp time.Time `json:"timestamp"`
}

// Emitter toggles a named busy channel. Emission is best-effort: a lost
// signal must never fail the job that raised it.
type Emitter interface {
	SetBusy(channel string, busy bool)
}

// BusEmitter publishes busy events to the RabbitMQ fanout exchange consumed
// by the indicator service.
type BusEmitter struct {
	bus    *rabbitmq.Client
	logger *slog.Logger
}

// NewBusEmitter creates an emitter backed by the event bus.
func NewBusEmitter(bus *rabbitmq.Client, logger *slog.Logger) *BusEmitter {
	return &BusEmitter{bus: bus, logger: logger}
}

// SetBusy publishes one transition. Publish errors are logged and dropped.
func (e *BusEmitter) SetBusy(channel string, busy bool) {
	event := Event{
		Channel:   channel,
		Busy:      busy,
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("Failed to encode indicator event",
			slog.String("channel", channel),
			slog.Any("error", err),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := e.bus.Publish(ctx, body, "application/json"); err != nil {
		e.logger.Warn("Failed to publish indicator event",
			slog.String("channel", channel),
			slog.Bool("busy", busy),
			slog.Any("error", err),
		)
	}
}

// LogEmitter logs transitions instead of publishing them. Used when the
// event bus is disabled.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates a log-only emitter.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// SetBusy logs one transition.
func (e *LogEmitter) SetBusy(channel string, busy bool) {
	e.logger.Debug("Indicator transition",
		slog.String("channel", channel),
		slog.Bool("busy", busy),
	)
}
