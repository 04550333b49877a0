// Package notify provides the wake-up signal shared by the pipeline stages.
package notify

import "sync"

// Broadcaster wakes every waiter at once. Waiters grab the channel before
// re-checking their condition so no wake-up is lost.
type Broadcaster struct {
	mu sync.Mutex
	ch chan struct{}
}

// New returns a ready broadcaster.
func New() *Broadcaster {
	return &Broadcaster{ch: make(chan struct{})}
}

// Wait returns a channel closed by the next Broadcast.
func (b *Broadcaster) Wait() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch
}

// Broadcast wakes all current waiters.
func (b *Broadcaster) Broadcast() {
	b.mu.Lock()
	close(b.ch)
	b.ch = make(chan struct{})
	b.mu.Unlock()
}
