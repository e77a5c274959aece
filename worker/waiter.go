package worker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Waiter blocks until the chain has moved far enough past sinceBlock.
type Waiter interface {
	Wait(ctx context.Context, sinceBlock uint64) error
}

// DelayWaiter waits a fixed duration regardless of the chain.
type DelayWaiter struct {
	Delay time.Duration
}

func (w DelayWaiter) Wait(ctx context.Context, _ uint64) error {
	if w.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(w.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BlockWaiter waits until the head is at least Blocks past sinceBlock.
type BlockWaiter struct {
	Gateway   Gateway
	Blocks    uint64
	PollEvery time.Duration
}

func (w BlockWaiter) Wait(ctx context.Context, sinceBlock uint64) error {
	poll := w.PollEvery
	if poll <= 0 {
		poll = time.Second
	}
	target := sinceBlock + w.Blocks

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		head, err := w.Gateway.BlockNumber(ctx)
		if err == nil && head >= target {
			return nil
		}
		if err != nil {
			log.WithError(err).Warn("failed to read head block")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
