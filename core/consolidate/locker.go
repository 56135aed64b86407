package consolidate

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/siherrmann/memograph/model"
)

// NoteLocker provides per-note mutual exclusion for consolidation runs.
// At most one run may be in flight per note rid; release is scoped through
// the returned function and safe on every exit path.
type NoteLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]chan struct{}
}

// NewNoteLocker creates a new note locker
func NewNoteLocker() *NoteLocker {
	return &NoteLocker{
		held: make(map[uuid.UUID]chan struct{}),
	}
}

// Acquire blocks until the lock for rid is free or the context is done.
// The returned release function is idempotent.
func (l *NoteLocker) Acquire(ctx context.Context, rid uuid.UUID) (func(), error) {
	for {
		l.mu.Lock()
		waitCh, inFlight := l.held[rid]
		if !inFlight {
			l.held[rid] = make(chan struct{})
			l.mu.Unlock()
			return l.releaseFunc(rid), nil
		}
		l.mu.Unlock()

		select {
		case <-waitCh:
			// Lock was released, try again
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TryAcquire acquires the lock for rid without waiting.
// Returns model.ErrConsolidationInFlight when a run is already in progress.
func (l *NoteLocker) TryAcquire(rid uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, inFlight := l.held[rid]; inFlight {
		return nil, model.ErrConsolidationInFlight
	}

	l.held[rid] = make(chan struct{})
	return l.releaseFunc(rid), nil
}

// releaseFunc builds the scoped release for a held lock. Closing the wait
// channel wakes every waiter; sync.Once keeps double release harmless.
func (l *NoteLocker) releaseFunc(rid uuid.UUID) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			waitCh := l.held[rid]
			delete(l.held, rid)
			l.mu.Unlock()

			if waitCh != nil {
				close(waitCh)
			}
		})
	}
}
