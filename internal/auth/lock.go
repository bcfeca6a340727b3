package auth

import (
	"context"
	"sync"
)

// keyedMutex serializes work per key. Entries are dropped once nobody holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

// refMutex is a one slot semaphore, so waiting can be abandoned.
type refMutex struct {
	sem  chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*refMutex{}}
}

// Lock blocks until key is free or ctx is done and returns the unlock function.
func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()

	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{sem: make(chan struct{}, 1)}
		k.locks[key] = m
	}

	m.refs++
	k.mu.Unlock()

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(key, m)

		return nil, ctx.Err() //nolint:wrapcheck
	}

	return func() {
		<-m.sem
		k.release(key, m)
	}, nil
}

func (k *keyedMutex) release(key string, m *refMutex) {
	k.mu.Lock()
	defer k.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.locks)
}
