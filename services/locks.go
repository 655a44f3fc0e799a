package services

import (
	"fmt"
	"sync"
)

// keyedMutex serializes work per key inside one process. Callers must take
// the lock before opening a transaction: with a single-connection pool a
// goroutine holding the connection must never wait on a key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func orderKey(id uint) string   { return fmt.Sprintf("order:%d", id) }
func productKey(id uint) string { return fmt.Sprintf("product:%d", id) }
func userKey(id uint) string    { return fmt.Sprintf("user:%d", id) }
