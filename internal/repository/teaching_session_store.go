package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/lumenlearn/lumen-backend/internal/config"
	"github.com/lumenlearn/lumen-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// ErrTeachingSessionNotFound is returned when a session id is unknown.
var ErrTeachingSessionNotFound = errors.New("teaching session not found")

// TeachingSessionStore holds live teaching session state. The redis
// implementation is the production default so adaptation state survives
// restarts and is shared across instances; the memory implementation serves
// tests and single-node development.
type TeachingSessionStore interface {
	Get(ctx context.Context, sessionID string) (*model.TeachingSession, error)
	Put(ctx context.Context, session *model.TeachingSession) error
	Remove(ctx context.Context, sessionID string) error
}

// ─── In-memory implementation ───────────────────────────────────────

// MemoryTeachingSessionStore keeps sessions in a process-local map.
type MemoryTeachingSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.TeachingSession
}

// NewMemoryTeachingSessionStore creates an empty in-memory store.
func NewMemoryTeachingSessionStore() *MemoryTeachingSessionStore {
	return &MemoryTeachingSessionStore{sessions: make(map[string]*model.TeachingSession)}
}

// Get returns a deep copy so callers never mutate shared state directly.
func (s *MemoryTeachingSessionStore) Get(_ context.Context, sessionID string) (*model.TeachingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrTeachingSessionNotFound
	}
	return copyTeachingSession(sess), nil
}

func (s *MemoryTeachingSessionStore) Put(_ context.Context, session *model.TeachingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = copyTeachingSession(session)
	return nil
}

func (s *MemoryTeachingSessionStore) Remove(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func copyTeachingSession(in *model.TeachingSession) *model.TeachingSession {
	out := *in
	out.History = make([]model.Adaptation, len(in.History))
	copy(out.History, in.History)
	if in.PendingTrigger != nil {
		t := *in.PendingTrigger
		out.PendingTrigger = &t
	}
	return &out
}

// ─── Redis implementation ───────────────────────────────────────────

// RedisTeachingSessionStore serializes sessions as JSON under a TTL so
// abandoned sessions age out without an explicit Remove.
type RedisTeachingSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisTeachingSessionStore creates a redis-backed store.
func NewRedisTeachingSessionStore(rdb *redis.Client, ttl time.Duration) *RedisTeachingSessionStore {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &RedisTeachingSessionStore{rdb: rdb, ttl: ttl}
}

func (s *RedisTeachingSessionStore) Get(ctx context.Context, sessionID string) (*model.TeachingSession, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.TeachingSessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTeachingSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess model.TeachingSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisTeachingSessionStore) Put(ctx context.Context, session *model.TeachingSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, config.CacheKey.TeachingSessionKey(session.ID), raw, s.ttl).Err()
}

func (s *RedisTeachingSessionStore) Remove(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, config.CacheKey.TeachingSessionKey(sessionID)).Err()
}
