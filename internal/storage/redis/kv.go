// Package redis persists cart slots in Redis, one key per
// (session, slot) pair.
package redis

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/pratofino/catering-cart/internal/domain/cart"
)

// NewClient parses a Redis URL (redis://...) and dials it.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	return redis.NewClient(opts), nil
}

// Slots stores slot payloads under session-scoped keys. Keys expire
// after TTL so abandoned sessions age out on their own; every write
// refreshes the clock.
type Slots struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration
}

var _ cart.Storage = (*Slots)(nil)

// NewSlots creates slot storage for one session. A zero ttl keeps
// entries forever.
func NewSlots(client *redis.Client, sessionID string, ttl time.Duration) *Slots {
	return &Slots{client: client, sessionID: sessionID, ttl: ttl}
}

func (s *Slots) key(slot string) string {
	return "cart:" + s.sessionID + ":" + slot
}

func (s *Slots) Load(ctx context.Context, slot string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(slot)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "load slot %q", slot)
	}
	return data, true, nil
}

func (s *Slots) Save(ctx context.Context, slot string, data []byte) error {
	if err := s.client.Set(ctx, s.key(slot), data, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "save slot %q", slot)
	}
	return nil
}

func (s *Slots) Delete(ctx context.Context, slot string) error {
	if err := s.client.Del(ctx, s.key(slot)).Err(); err != nil {
		return errors.Wrapf(err, "delete slot %q", slot)
	}
	return nil
}
