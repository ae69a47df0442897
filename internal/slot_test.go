package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlot_AcquireCancelsPreviousHolder(t *testing.T) {
	req := require.New(t)
	var slot Slot

	first, cancelFirst := slot.Acquire(context.Background())
	defer cancelFirst()
	req.NoError(first.Err())

	second, cancelSecond := slot.Acquire(context.Background())
	defer cancelSecond()

	req.ErrorIs(first.Err(), context.Canceled)
	req.NoError(second.Err())
}

func TestSlot_DrainCancelsCurrentHolder(t *testing.T) {
	req := require.New(t)
	var slot Slot

	ctx, cancel := slot.Acquire(context.Background())
	defer cancel()

	slot.Drain()
	req.ErrorIs(ctx.Err(), context.Canceled)

	// Drain on an empty slot is harmless.
	slot.Drain()
}

func TestSlot_ChildFollowsParentCancellation(t *testing.T) {
	req := require.New(t)
	var slot Slot

	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := slot.Acquire(parent)
	defer cancel()

	cancelParent()
	req.ErrorIs(ctx.Err(), context.Canceled)
}
