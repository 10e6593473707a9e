// ABOUTME: TTL and size bounded filter of already-seen chat events
// ABOUTME: Adapters consult it before handing an event to the session coordinator

package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Defaults used by the channel adapters.
const (
	DefaultTTL      = 10 * time.Minute
	DefaultCapacity = 4096
)

type seenEvent struct {
	key    string
	seenAt time.Time
}

// Filter remembers recently seen events. The zero value is not usable; call NewFilter.
type Filter struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	index    map[string]*list.Element
	order    *list.List // oldest at front
	now      func() time.Time
}

// NewFilter creates a filter. Non-positive arguments fall back to the defaults.
func NewFilter(ttl time.Duration, capacity int) *Filter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Filter{
		ttl:      ttl,
		capacity: capacity,
		index:    make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
}

func key(chatID, eventID string) string {
	return chatID + "\x00" + eventID
}

// Duplicate reports whether the event was seen within the TTL and marks it
// seen otherwise. Check and mark happen under one lock.
func (f *Filter) Duplicate(chatID, eventID string) bool {
	k := key(chatID, eventID)
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	if elem, ok := f.index[k]; ok {
		ev := elem.Value.(*seenEvent)
		if now.Sub(ev.seenAt) < f.ttl {
			return true
		}
		ev.seenAt = now
		f.order.MoveToBack(elem)
		return false
	}

	for f.order.Len() >= f.capacity {
		f.removeLocked(f.order.Front())
	}
	f.index[k] = f.order.PushBack(&seenEvent{key: k, seenAt: now})
	return false
}

// Len returns the number of remembered events, expired ones included.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.order.Len()
}

// Prune forgets expired events and returns how many were removed.
func (f *Filter) Prune() int {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	// Entries are ordered by seenAt, so stop at the first live one.
	for elem := f.order.Front(); elem != nil; elem = f.order.Front() {
		if now.Sub(elem.Value.(*seenEvent).seenAt) < f.ttl {
			break
		}
		f.removeLocked(elem)
		removed++
	}
	return removed
}

// Run prunes once per interval until ctx is done.
func (f *Filter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Prune()
		}
	}
}

func (f *Filter) removeLocked(elem *list.Element) {
	f.order.Remove(elem)
	delete(f.index, elem.Value.(*seenEvent).key)
}
