package callflow

import (
	"context"
	"sync"
)

// keyedMutex serializes work per key. Entries are dropped once no goroutine
// holds or waits for them, so the map only holds calls with a turn in flight.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

// refLock is a one-slot semaphore so waiters can give up.
type refLock struct {
	sem chan struct{}
	ref int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refLock)}
}

// Lock acquires the lock for key and returns its release func. It gives up
// with ctx's error if ctx ends first.
func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{sem: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.ref++
	k.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		k.drop(key, l)
		return nil, ctx.Err()
	}

	return func() {
		<-l.sem
		k.drop(key, l)
	}, nil
}

func (k *keyedMutex) drop(key string, l *refLock) {
	k.mu.Lock()
	l.ref--
	if l.ref == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// Len returns the number of keys currently locked or awaited.
func (k *keyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
