package services

import (
	"context"
	"sync"
)

// tripLocks hands out one lock per trip id. Waiting honours ctx so a stuck
// holder can never block a caller past its deadline.
type tripLocks struct {
	mu    sync.Mutex
	locks map[string]*tripLock
}

type tripLock struct {
	ch   chan struct{}
	refs int
}

func newTripLocks() *tripLocks {
	return &tripLocks{locks: map[string]*tripLock{}}
}

// acquire blocks until the trip lock is held or ctx is done. The returned
// func releases the lock.
func (l *tripLocks) acquire(ctx context.Context, tripID string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[tripID]
	if !ok {
		lk = &tripLock{ch: make(chan struct{}, 1)}
		l.locks[tripID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
		return func() {
			<-lk.ch
			l.drop(tripID, lk)
		}, nil
	case <-ctx.Done():
		l.drop(tripID, lk)
		return nil, ctx.Err()
	}
}

func (l *tripLocks) drop(tripID string, lk *tripLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, tripID)
	}
}
