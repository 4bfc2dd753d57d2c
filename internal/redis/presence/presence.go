// Package presence mirrors relay slot ownership into Redis so other tools can
// see who is connected without talking to the relay. The hash relay:slots maps
// slot index to peer address; every change is also published on relay:events.
package presence

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	SlotsKey      = "relay:slots"
	EventsChannel = "relay:events"

	queueSize      = 256
	publishTimeout = 2 * time.Second
)

type Event struct {
	Event string `json:"event"` // "join" or "leave"
	Slot  int    `json:"slot"`
	Peer  string `json:"peer,omitempty"`
	At    int64  `json:"at"`
}

// Publisher implements relay.Notifier. Joined and Left only enqueue, and the
// registry calls them under its lock, so the queue holds slot transitions in
// the order they happened. Run does the Redis round-trips.
type Publisher struct {
	rdc   *redis.Client
	queue chan Event
	now   func() time.Time
}

func NewPublisher(rdc *redis.Client) *Publisher {
	return &Publisher{
		rdc:   rdc,
		queue: make(chan Event, queueSize),
		now:   time.Now,
	}
}

func (p *Publisher) Joined(slot int, peer string) {
	p.enqueue(Event{Event: "join", Slot: slot, Peer: peer, At: p.now().Unix()})
}

func (p *Publisher) Left(slot int, peer string) {
	p.enqueue(Event{Event: "leave", Slot: slot, Peer: peer, At: p.now().Unix()})
}

func (p *Publisher) enqueue(ev Event) {
	select {
	case p.queue <- ev:
	default:
		zap.L().Warn("presence.queue_full", zap.String("event", ev.Event), zap.Int("slot", ev.Slot))
	}
}

// Reset drops entries left behind by a previous process.
func (p *Publisher) Reset(ctx context.Context) error {
	return p.rdc.Del(ctx, SlotsKey).Err()
}

// Run publishes queued events until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			if err := p.publish(ctx, ev); err != nil {
				zap.L().Warn("presence.publish", zap.String("event", ev.Event), zap.Int("slot", ev.Slot), zap.Error(err))
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	field := strconv.Itoa(ev.Slot)
	_, err = p.rdc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if ev.Event == "join" {
			pipe.HSet(ctx, SlotsKey, field, ev.Peer)
		} else {
			pipe.HDel(ctx, SlotsKey, field)
		}
		pipe.Publish(ctx, EventsChannel, string(payload))
		return nil
	})
	return err
}
