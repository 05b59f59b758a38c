// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"sync"
	"sync/atomic"

	xglog "github.com/ManuGH/playcore/internal/log"
	"github.com/ManuGH/playcore/internal/metrics"
)

const (
	defaultSubscriberBuffer = 64
	dropLogEvery            = 100
)

// Bus fans events out to channel subscribers for collaborators that consume
// off the owner goroutine. Publish never blocks: a full subscriber loses the
// event.
type Bus struct {
	mu        sync.RWMutex
	subs      map[*Subscription]struct{}
	dropCount atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscription receives events for the kinds it asked for (all when empty).
type Subscription struct {
	b     *Bus
	kinds map[Kind]struct{}
	ch    chan Event
	once  sync.Once
}

// Subscribe registers a buffered subscriber. buffer <= 0 uses the default.
func (b *Bus) Subscribe(buffer int, kinds ...Kind) *Subscription {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	s := &Subscription{b: b, ch: make(chan Event, buffer)}
	if len(kinds) > 0 {
		s.kinds = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = struct{}{}
		}
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Publish delivers ev to every interested subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if !s.wants(ev.Kind) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			metrics.IncBusDrop(string(ev.Kind))
			count := b.dropCount.Add(1)
			if count%dropLogEvery == 1 {
				l := xglog.WithComponent("events.bus")
				l.Warn().
					Str("topic", string(ev.Kind)).
					Uint64("dropped", count).
					Str(xglog.FieldEvent, "events.bus_drop").
					Msg("event bus subscriber full, dropping")
			}
		}
	}
}

// Len returns the number of live subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (s *Subscription) wants(k Kind) bool {
	if s.kinds == nil {
		return true
	}
	_, ok := s.kinds[k]
	return ok
}

// C returns the delivery channel. It is closed by Close.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close unsubscribes and closes the channel. Idempotent.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.subs, s)
		s.b.mu.Unlock()
		close(s.ch) // Signal subscriber to stop
	})
	return nil
}
