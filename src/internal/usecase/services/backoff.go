package services

import (
	"context"
	"math/rand"
	"time"
)

const backoffBase = 25 * time.Millisecond
const backoffCap = 400 * time.Millisecond

// sleepBackoff waits an exponentially growing, jittered interval before a
// conflict retry. Returns false when the context is done first.
func sleepBackoff(ctx context.Context, attempt int) bool {
	delay := backoffBase << attempt
	if delay > backoffCap {
		delay = backoffCap
	}
	delay += time.Duration(rand.Int63n(int64(backoffBase)))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
