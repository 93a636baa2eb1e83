package session

import (
	"context"
	"encoding/json"
	"errors"
	"quiz_engine_backend/internal/util"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

type Kind string

const (
	KindAuthoring Kind = "authoring"
	KindTaking    Kind = "taking"
)

// Snapshot is what a SessionStore keeps for one session.
type Snapshot struct {
	ID        string             `json:"id"`
	Kind      Kind               `json:"kind"`
	Authoring *AuthoringSnapshot `json:"authoring,omitempty"`
	Taking    *TakingSnapshot    `json:"taking,omitempty"`
	SavedAt   time.Time          `json:"savedAt"`
}

// SessionStore persists session snapshots so a session outlives the
// process that created it.
type SessionStore interface {
	Save(ctx context.Context, snap Snapshot) error
	// Load returns util.ErrSessionNotFound for an unknown or expired id.
	Load(ctx context.Context, id string) (*Snapshot, error)
	Delete(ctx context.Context, id string) error
}

const redisKeyPrefix = "quiz_engine:session:"

type RedisSessionStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{Client: client, TTL: ttl}
}

func (s *RedisSessionStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, redisKeyPrefix+snap.ID, data, s.TTL).Err()
}

func (s *RedisSessionStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	data, err := s.Client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.Client.Del(ctx, redisKeyPrefix+id).Err()
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemorySessionStore keeps snapshots in process; used without Redis and in tests.
type MemorySessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{ttl: ttl, entries: map[string]memoryEntry{}}
}

func (s *MemorySessionStore) Save(_ context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{data: data}
	if s.ttl > 0 {
		e.expires = time.Now().Add(s.ttl)
	}
	s.entries[snap.ID] = e
	return nil
}

func (s *MemorySessionStore) Load(_ context.Context, id string) (*Snapshot, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok && !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(s.entries, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	var snap Snapshot
	if err := json.Unmarshal(e.data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}
