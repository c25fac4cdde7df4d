package ingress

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// notifyEnvelope is the wire format the message store publishes on the
// notify channel. Exactly one of the payload groups is set, keyed by Kind.
type notifyEnvelope struct {
	Kind string `json:"kind"` // "new_message", "messages_read" or "typing"

	RecipientID string         `json:"recipient_id,omitempty"`
	SenderName  string         `json:"sender_name,omitempty"`
	Data        map[string]any `json:"data,omitempty"`

	SenderID   string   `json:"sender_id,omitempty"`
	MessageIDs []string `json:"message_ids,omitempty"`

	BookingID  string `json:"booking_id,omitempty"`
	FromUserID string `json:"from_user_id,omitempty"`
	IsTyping   bool   `json:"is_typing,omitempty"`
	ToUserID   string `json:"to_user_id,omitempty"`
}

// RedisIngress subscribes to the notify channel and forwards decoded
// envelopes to the notifier.
type RedisIngress struct {
	client   *redis.Client
	prefix   string
	notifier Notifier
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	active bool
}

// NewRedisIngress creates an ingress backed by Redis pub/sub.
func NewRedisIngress(cfg *RedisConfig, notifier Notifier, logger zerolog.Logger) *RedisIngress {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisIngress{
		client:   client,
		prefix:   cfg.Prefix,
		notifier: notifier,
		logger:   logger.With().Str("component", "redis-ingress").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the notify channel and begins consuming envelopes.
func (i *RedisIngress) Start() error {
	if err := i.client.Ping(i.ctx).Err(); err != nil {
		return err
	}

	channel := i.prefix + "notify"
	sub := i.client.Subscribe(i.ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(i.ctx); err != nil {
		return err
	}

	i.mu.Lock()
	i.active = true
	i.mu.Unlock()

	i.wg.Add(1)
	go i.listen(sub)

	i.logger.Info().Str("channel", channel).Msg("redis ingress started")
	return nil
}

// Stop unsubscribes and closes the Redis connection.
func (i *RedisIngress) Stop() error {
	i.mu.Lock()
	i.active = false
	i.mu.Unlock()

	i.cancel()
	i.wg.Wait()
	return i.client.Close()
}

// Available reports whether the ingress is consuming.
func (i *RedisIngress) Available() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.active
}

// listen reads envelopes from the subscription until the ingress stops.
func (i *RedisIngress) listen(sub *redis.PubSub) {
	defer i.wg.Done()
	defer func() {
		if err := sub.Close(); err != nil {
			i.logger.Warn().Err(err).Msg("subscription close failed")
		}
	}()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			i.handle(msg.Payload)
		case <-i.ctx.Done():
			return
		}
	}
}

// handle decodes one envelope and forwards it. Undecodable or unknown
// envelopes are dropped; a bad publisher must not stop the ingress.
func (i *RedisIngress) handle(payload string) {
	var env notifyEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		i.logger.Error().Err(err).Msg("failed to decode notify envelope")
		return
	}

	switch env.Kind {
	case "new_message":
		n := i.notifier.NotifyNewMessage(env.RecipientID, env.SenderName, env.Data)
		i.logger.Debug().Str("recipient_id", env.RecipientID).Int("delivered", n).Msg("relayed new_message")
	case "messages_read":
		n := i.notifier.NotifyMessagesRead(env.SenderID, env.MessageIDs)
		i.logger.Debug().Str("sender_id", env.SenderID).Int("delivered", n).Msg("relayed messages_read")
	case "typing":
		i.notifier.BroadcastTyping(env.BookingID, env.FromUserID, env.IsTyping, env.ToUserID)
	default:
		i.logger.Debug().Str("kind", env.Kind).Msg("dropping unknown envelope kind")
	}
}
