package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// KeyedMutex serializes state transitions per entity key (lead id, domain
// name). Locks are never removed from the map; the key space is bounded
// by the number of live leads and domains in a single process.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (km *KeyedMutex) Lock(key string) {
	km.mu.Lock()
	l, ok := km.locks[key]
	if !ok {
		l = &sync.Mutex{}
		km.locks[key] = l
	}
	km.mu.Unlock()
	l.Lock()
}

// Unlock releases the mutex for key.
func (km *KeyedMutex) Unlock(key string) {
	km.mu.Lock()
	l, ok := km.locks[key]
	km.mu.Unlock()
	if ok {
		l.Unlock()
	}
}

// LeadKey builds the contention key for per-lead serialization.
func LeadKey(leadID uint) string { return fmt.Sprintf("lead:%d", leadID) }

// DomainKey builds the contention key for per-domain serialization.
func DomainKey(domain string) string { return "domain:" + domain }

// RedisLock is a SETNX-based lock for multi-instance deployments. The
// in-process KeyedMutex still applies; this only fences other processes.
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLock{client: client, ttl: ttl}
}

// Acquire tries to take the lock once. Returns a release func on success,
// nil if another process holds it.
func (rl *RedisLock) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	ok, err := rl.client.SetNX(ctx, "lock:"+key, token, rl.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	release := func() {
		// Only delete our own token; an expired lock may have been re-acquired.
		val, err := rl.client.Get(context.Background(), "lock:"+key).Result()
		if err == nil && val == token {
			rl.client.Del(context.Background(), "lock:"+key)
		}
	}
	return release, nil
}
