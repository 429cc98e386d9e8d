// internal/syncer/locks.go
package syncer

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// mirrorLocks serializes fetches per mirror. Waiting honours ctx.
type mirrorLocks struct {
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func newMirrorLocks() *mirrorLocks {
	return &mirrorLocks{sems: make(map[string]*semaphore.Weighted)}
}

func (l *mirrorLocks) acquire(ctx context.Context, mirror string) (func(), error) {
	l.mu.Lock()
	sem, ok := l.sems[mirror]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.sems[mirror] = sem
	}
	l.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
