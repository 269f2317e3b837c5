package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultSessionTTL = 24 * time.Hour

	maxUpdateAttempts = 10
)

var ErrConcurrentUpdate = errors.New("cart was modified concurrently")

// SessionStore keeps one cart per session id. Loading an unknown session
// yields an empty cart; saving an empty cart forgets the session.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
	// Update applies fn to the stored cart and saves the result atomically
	// with respect to other updates of the same session. Nothing is saved
	// when fn fails, and fn's error is returned as is.
	Update(ctx context.Context, sessionID string, fn func(c *Cart) error) (*Cart, error)
}

type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{redis: rdb, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return "cart:" + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Cart, error) {
	return decodeCart(sessionID, s.redis.Get(ctx, sessionKey(sessionID)))
}

func decodeCart(sessionID string, cmd *redis.StringCmd) (*Cart, error) {
	data, err := cmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to load cart %s: %w", sessionID, err)
	}

	c := New()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to decode cart %s: %w", sessionID, err)
	}

	return c, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, c *Cart) error {
	if c == nil || c.Len() == 0 {
		return s.Delete(ctx, sessionID)
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode cart %s: %w", sessionID, err)
	}

	if err := s.redis.Set(ctx, sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart %s: %w", sessionID, err)
	}

	return nil
}

// Update watches the cart key and retries when another request changed the
// cart between the read and the write.
func (s *RedisStore) Update(ctx context.Context, sessionID string, fn func(c *Cart) error) (*Cart, error) {
	key := sessionKey(sessionID)
	var updated *Cart

	txf := func(tx *redis.Tx) error {
		c, err := decodeCart(sessionID, tx.Get(ctx, key))
		if err != nil {
			return err
		}

		if err := fn(c); err != nil {
			return err
		}

		var data []byte
		if c.Len() > 0 {
			if data, err = json.Marshal(c); err != nil {
				return fmt.Errorf("failed to encode cart %s: %w", sessionID, err)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if data == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, data, s.ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}

		updated = c
		return nil
	}

	for range maxUpdateAttempts {
		err := s.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}

	return nil, fmt.Errorf("%w: session %s", ErrConcurrentUpdate, sessionID)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart %s: %w", sessionID, err)
	}
	return nil
}

// MemoryStore is used when no Redis is configured. Carts never expire.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]*Cart
	locks map[string]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts: make(map[string]*Cart),
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.carts[sessionID]
	if !ok {
		return New(), nil
	}
	return &Cart{lines: stored.Snapshot()}, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c == nil || c.Len() == 0 {
		delete(s.carts, sessionID)
		return nil
	}
	s.carts[sessionID] = &Cart{lines: c.Snapshot()}
	return nil
}

// Update serializes updates per session; other sessions are not blocked while
// fn consults the catalog.
func (s *MemoryStore) Update(ctx context.Context, sessionID string, fn func(c *Cart) error) (*Cart, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := fn(c); err != nil {
		return nil, err
	}

	if err := s.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *MemoryStore) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, sessionID)
	return nil
}
