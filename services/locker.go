package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// EventLocker serializes all mutating operations on a single event. Every
// lifecycle transition, matchmaking run and result report acquires the
// event's region before reading shared team state; different events proceed
// in parallel. Acquisition waits at most the configured timeout and then
// fails with ErrBusy instead of hanging.
type EventLocker struct {
	timeout time.Duration

	mu      sync.Mutex
	regions map[uuid.UUID]*semaphore.Weighted
}

func NewEventLocker(timeout time.Duration) *EventLocker {
	return &EventLocker{
		timeout: timeout,
		regions: make(map[uuid.UUID]*semaphore.Weighted),
	}
}

func (l *EventLocker) region(eventID uuid.UUID) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.regions[eventID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.regions[eventID] = sem
	}
	return sem
}

// Acquire enters the event's critical region. The returned release function
// must be called exactly once, before the operation returns to its caller.
func (l *EventLocker) Acquire(ctx context.Context, eventID uuid.UUID) (release func(), err error) {
	sem := l.region(eventID)

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := sem.Acquire(waitCtx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrBusy
		}
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}
