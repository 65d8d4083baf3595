package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	sequencerLockTTL   = 30 * time.Second
	sequencerLockRetry = 50 * time.Millisecond
)

// Sequencer serializes work per key. Confirmations for one player run one at
// a time; different players proceed in parallel.
type Sequencer interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// NewSequencer picks the redis-backed sequencer when a locker is available
// (multi-instance deployments) and falls back to in-process mutexes.
func NewSequencer(locker *Locker, log *zap.Logger) Sequencer {
	if locker != nil {
		return &redisSequencer{locker: locker, log: log.Named("ratelimit.sequencer")}
	}
	return &mutexSequencer{locks: make(map[string]*sync.Mutex)}
}

type redisSequencer struct {
	locker *Locker
	log    *zap.Logger
}

func (s *redisSequencer) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lockKey := "seq:" + key
	for {
		token, ok, err := s.locker.TryLock(ctx, lockKey, sequencerLockTTL)
		if err != nil {
			return err
		}
		if ok {
			defer func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
					s.log.Warn("lock release failed", zap.String("key", lockKey), zap.Error(err))
				}
			}()
			return fn(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sequencerLockRetry):
		}
	}
}

// mutexSequencer keeps one mutex per key. Keys are player IDs, so the map
// stays small; entries are never evicted.
type mutexSequencer struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (s *mutexSequencer) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}
