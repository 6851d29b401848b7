package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLockerSerializesSameEvent(t *testing.T) {
	locker := NewEventLocker(50 * time.Millisecond)
	eventID := uuid.New()

	release, err := locker.Acquire(context.Background(), eventID)
	require.NoError(t, err)

	_, err = locker.Acquire(context.Background(), eventID)
	assert.ErrorIs(t, err, ErrBusy)

	release()

	release2, err := locker.Acquire(context.Background(), eventID)
	require.NoError(t, err)
	release2()
}

func TestEventLockerIndependentEvents(t *testing.T) {
	locker := NewEventLocker(50 * time.Millisecond)

	release1, err := locker.Acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	defer release1()

	release2, err := locker.Acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	defer release2()
}

func TestEventLockerWaitsOutShortContention(t *testing.T) {
	locker := NewEventLocker(200 * time.Millisecond)
	eventID := uuid.New()

	release, err := locker.Acquire(context.Background(), eventID)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	release2, err := locker.Acquire(context.Background(), eventID)
	require.NoError(t, err, "a briefly held region should be acquired, not rejected")
	release2()
}

func TestEventLockerHonorsCallerCancellation(t *testing.T) {
	locker := NewEventLocker(time.Second)
	eventID := uuid.New()

	release, err := locker.Acquire(context.Background(), eventID)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locker.Acquire(ctx, eventID)
	assert.ErrorIs(t, err, context.Canceled)
}
