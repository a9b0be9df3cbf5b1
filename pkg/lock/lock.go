// Package lock serializes critical sections by key. Scheduling takes one
// key per room, ticket attachment takes one per screening and one per
// ticket.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrNotAcquired is returned when a lock could not be taken before the
// context expired.
var ErrNotAcquired = errors.New("lock not acquired")

// Unlock releases a previously acquired lock. It is safe to call once.
type Unlock func()

type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

func RoomKey(roomID uuid.UUID) string { return "room:" + roomID.String() }

func ScreeningKey(screeningID int64) string { return fmt.Sprintf("screening:%d", screeningID) }

func TicketKey(ticketID int64) string { return fmt.Sprintf("ticket:%d", ticketID) }

// LockAll acquires every key in sorted order, so two callers asking for
// overlapping key sets can never deadlock. The key prefixes sort as
// room < screening < ticket.
func LockAll(ctx context.Context, l Locker, keys ...string) (Unlock, error) {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	held := make([]Unlock, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	for _, k := range sorted {
		unlock, err := l.Lock(ctx, k)
		if err != nil {
			release()
			return nil, fmt.Errorf("lock %s: %w", k, err)
		}
		held = append(held, unlock)
	}

	return release, nil
}

// LocalLocker is an in-process keyed mutex. Waiters honour ctx
// cancellation. Entries are dropped once nobody holds or waits on them.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s, false)
		return nil, fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, s, true) })
	}, nil
}

func (l *LocalLocker) release(key string, s *slot, held bool) {
	if held {
		<-s.ch
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// size reports live entries; used by tests to check cleanup.
func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
