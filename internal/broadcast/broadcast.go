// Package broadcast fans progress snapshots out to any number of
// subscribers. Subscribers joining mid-transfer receive only subsequent
// events; there is no replay.
package broadcast

import (
	"sync"

	"github.com/fetchd/fetchd/internal/data"
)

const defaultBuffer = 16

// Broadcaster delivers each published snapshot to every subscriber in
// publish order. A slow subscriber loses its oldest queued snapshots rather
// than blocking the publisher, so the most recent event, including the
// terminal one, always gets through.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan data.Snapshot]struct{}
	buf    int
	closed bool
}

func New(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broadcaster{subs: make(map[chan data.Snapshot]struct{}), buf: buffer}
}

// Subscribe returns a channel of subsequent snapshots and a cancel func that
// removes the subscription and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan data.Snapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan data.Snapshot, b.buf)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers a snapshot to all current subscribers.
func (b *Broadcaster) Publish(s data.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for ch := range b.subs {
		for {
			select {
			case ch <- s:
			default:
				// Full queue: evict the oldest snapshot and retry so the
				// newest observation is never the one dropped.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Close terminates all subscriptions.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
