package messaging

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/pixil98/go-gamesync/internal/session"
)

const DefaultSubjectPrefix = "gamesync.events"

// Publisher sends raw bytes to a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Bridge republishes session events as JSON under <prefix>.<event name>.
type Bridge struct {
	events *session.Events
	pub    Publisher
	prefix string

	unsubscribe func()
}

type BridgeOpt func(*Bridge)

// WithSubjectPrefix replaces DefaultSubjectPrefix.
func WithSubjectPrefix(prefix string) BridgeOpt {
	return func(b *Bridge) {
		b.prefix = strings.TrimSuffix(prefix, ".")
	}
}

func NewBridge(events *session.Events, pub Publisher, opts ...BridgeOpt) *Bridge {
	b := &Bridge{
		events: events,
		pub:    pub,
		prefix: DefaultSubjectPrefix,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subject returns the subject an event name is published on.
func (b *Bridge) Subject(name string) string {
	return b.prefix + "." + name
}

func (b *Bridge) Start() {
	if b.unsubscribe != nil {
		return
	}
	b.unsubscribe = b.events.SubscribeAll(b.forward)
}

func (b *Bridge) Stop() {
	if b.unsubscribe == nil {
		return
	}
	b.unsubscribe()
	b.unsubscribe = nil
}

func (b *Bridge) forward(name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("encoding event for bus", "event", name, "error", err)
		return
	}
	if err := b.pub.Publish(b.Subject(name), data); err != nil {
		slog.Debug("dropping event for bus", "event", name, "error", err)
	}
}
