package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/redis/go-redis/v9"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisBus carries events into the worker and commands out of it over Redis
// pub/sub. Events go to <channel>:events, commands to <channel>:commands.
type RedisBus struct {
	pub     publisher
	sub     subscriber
	channel string
	logger  logging.Logger
}

func NewRedisBus(client *redis.Client, channel string, logger logging.Logger) *RedisBus {
	return &RedisBus{
		pub:     client,
		sub:     client,
		channel: channel,
		logger:  logger.With("module", "redis_bus"),
	}
}

func (b *RedisBus) eventsChannel() string   { return b.channel + ":events" }
func (b *RedisBus) commandsChannel() string { return b.channel + ":commands" }

// Publish sends an event to whichever worker is subscribed and reports how
// many subscribers received it.
func (b *RedisBus) Publish(ctx context.Context, ev Event) (int64, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return 0, err
	}
	n, err := b.pub.Publish(ctx, b.eventsChannel(), data).Result()
	if err != nil {
		return 0, fmt.Errorf("publish event: %w", err)
	}
	return n, nil
}

// Apply publishes a command so other processes can observe the worker.
func (b *RedisBus) Apply(ctx context.Context, cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	if err := b.pub.Publish(ctx, b.commandsChannel(), data).Err(); err != nil {
		return fmt.Errorf("publish command: %w", err)
	}
	return nil
}

// Events subscribes to the events channel. The returned channel is closed
// when ctx is done or the subscription ends. Malformed messages are dropped.
func (b *RedisBus) Events(ctx context.Context) (<-chan Event, error) {
	ps := b.sub.Subscribe(ctx, b.eventsChannel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.eventsChannel(), err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				ev, err := decodeEvent(msg.Payload)
				if err != nil {
					b.logger.Warn(ctx, "dropping malformed event", "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	if ev.Type != EventPush && ev.Type != EventClick {
		return Event{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return ev, nil
}
