package bus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// Relay carries events between coordinator instances. Publish hands local
// events to the transport; Run feeds events from other instances into the
// local hub until ctx is done.
type Relay interface {
	Publisher
	Run(ctx context.Context) error
	Close() error
}

// Envelope is the wire form of relayed events. Origin identifies the sending
// instance so it can skip its own messages.
type Envelope struct {
	Origin string  `json:"origin"`
	Events []Event `json:"events,omitempty"`
	Refs   []Ref   `json:"refs,omitempty"`
}

func encodeEnvelope(env Envelope) ([]byte, error) { return json.Marshal(env) }

func decodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, err
	}
	if env.Origin == "" {
		return Envelope{}, errors.New("envelope without origin")
	}
	return env, nil
}

// Broadcaster publishes to the local hub first and then to the relay, if
// any. Other instances still get the events when the local hub is closed.
type Broadcaster struct {
	Hub   *Hub
	Relay Relay
}

func (b Broadcaster) Publish(ctx context.Context, evs ...Event) error {
	err := b.Hub.Publish(ctx, evs...)
	if b.Relay == nil {
		return err
	}
	return errors.Join(err, b.Relay.Publish(ctx, evs...))
}

// Multi publishes to every publisher in turn and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evs ...Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, evs...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Local is the relay used when a single instance serves every client.
type Local struct{}

func (Local) Publish(context.Context, ...Event) error { return nil }

func (Local) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (Local) Close() error { return nil }

const (
	minReconnect = 500 * time.Millisecond
	maxReconnect = 15 * time.Second
)

// wait sleeps for the reconnect delay of the given attempt.
func wait(ctx context.Context, attempt int) error {
	d := minReconnect << min(attempt, 5)
	if d > maxReconnect {
		d = maxReconnect
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// session is one connection of a relay consumer. It calls healthy once it has
// received traffic.
type session func(ctx context.Context, healthy func()) error

// keepAlive runs s until ctx is done, pausing before every reconnect and
// resyncing the hub afterwards. A session that reported itself healthy
// starts the backoff over.
func keepAlive(ctx context.Context, hub *Hub, log *slog.Logger, pause func(context.Context, int) error, s session) {
	attempt := 0
	for {
		healthy := false
		err := s(ctx, func() { healthy = true })
		if ctx.Err() != nil {
			return
		}
		if healthy {
			attempt = 0
		}
		log.Warn("relay_disconnected", "attempt", attempt, "error", err)
		if pause(ctx, attempt) != nil {
			return
		}
		attempt++
		// events published while we were away are lost to this instance
		hub.Resync("")
	}
}
