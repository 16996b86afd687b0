package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Krumil/hacksignal/internal/domain"
)

// Priority of one alert delivery.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Channel names a delivery transport.
type Channel string

const (
	ChannelConsole Channel = "console"
	ChannelAMQP    Channel = "amqp"
)

// Message is one formatted, channel-agnostic alert.
type Message struct {
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Priority Priority               `json:"priority"`
	Decision domain.RoutingDecision `json:"decision"`
	Event    domain.EnrichedEvent   `json:"event"`
}

// Sender delivers one message over one transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Registry dispatches messages to registered channel senders. New channels
// are added here without touching the router's decision logic.
type Registry struct {
	senders map[Channel]Sender
}

func NewRegistry() *Registry {
	return &Registry{senders: make(map[Channel]Sender)}
}

// Register binds a sender to a channel name, replacing any previous binding.
func (r *Registry) Register(ch Channel, s Sender) {
	r.senders[ch] = s
}

// Send dispatches to the sender registered for the channel.
func (r *Registry) Send(ctx context.Context, ch Channel, msg Message) error {
	s, ok := r.senders[ch]
	if !ok {
		return fmt.Errorf("no sender registered for channel %q", ch)
	}
	return s.Send(ctx, msg)
}

// ConsoleSender logs alerts to the process log. Used for local runs and as
// the fallback channel.
type ConsoleSender struct {
	logger *slog.Logger
}

func NewConsoleSender(logger *slog.Logger) *ConsoleSender {
	return &ConsoleSender{logger: logger.With("channel", "console")}
}

func (c *ConsoleSender) Send(_ context.Context, msg Message) error {
	c.logger.Info("alert",
		"priority", msg.Priority,
		"decision", msg.Decision,
		"title", msg.Title,
		"body", msg.Body,
	)
	return nil
}
