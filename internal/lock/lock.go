// Package lock provides per-key mutual exclusion for account mutations.
package lock

import (
	"context"
	"fmt"
	"sync"
)

// keyMutex is a mutex shared by every caller working on the same key.
// refs counts holders and waiters; the entry is dropped when it reaches zero.
type keyMutex struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex serializes work per key (a username) while letting different keys
// proceed in parallel. The table lock is held only for lookups, never while a
// caller waits on or holds a key.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyMutex
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		entries: make(map[string]*keyMutex),
	}
}

// acquire returns the entry for key, creating it if needed, and takes a reference.
func (k *KeyedMutex) acquire(key string) *keyMutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &keyMutex{}
		k.entries[key] = e
	}
	e.refs++
	return e
}

// release drops a reference and forgets the entry once nobody uses it.
func (k *KeyedMutex) release(key string, e *keyMutex) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Lock blocks until the caller holds key.
func (k *KeyedMutex) Lock(key string) {
	e := k.acquire(key)
	e.mu.Lock()
}

// Unlock releases key. Unlocking a key that is not held is a programming error.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.entries[key]
	k.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("lock: unlock of unlocked key %q", key))
	}

	e.mu.Unlock()
	k.release(key, e)
}

// TryLock acquires key without blocking. It reports whether the lock was taken.
func (k *KeyedMutex) TryLock(key string) bool {
	e := k.acquire(key)
	if e.mu.TryLock() {
		return true
	}
	k.release(key, e)
	return false
}

// LockContext waits for key until ctx is done.
func (k *KeyedMutex) LockContext(ctx context.Context, key string) error {
	e := k.acquire(key)
	if e.mu.TryLock() {
		return nil
	}

	done := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		// The waiter still gets the mutex eventually; hand it straight back.
		go func() {
			<-done
			e.mu.Unlock()
			k.release(key, e)
		}()
		return fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
	}
}

// WithLock runs fn while holding key.
func (k *KeyedMutex) WithLock(key string, fn func() error) error {
	k.Lock(key)
	defer k.Unlock(key)
	return fn()
}

// WithLockContext runs fn while holding key, giving up if ctx ends first.
func (k *KeyedMutex) WithLockContext(ctx context.Context, key string, fn func() error) error {
	if err := k.LockContext(ctx, key); err != nil {
		return err
	}
	defer k.Unlock(key)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// Len returns the number of keys currently held or waited on.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
