package services

import (
	"fmt"
	"sync/atomic"
	"time"
)

var referenceCounter uint32

// generateReference builds a human reference code: prefix, UTC timestamp,
// nanoseconds, and a rotating counter suffix to keep bursts unique.
func generateReference(prefix string) string {
	now := time.Now().UTC()
	base := now.Format("20060102150405") + fmt.Sprintf("%09d", now.Nanosecond())
	counter := atomic.AddUint32(&referenceCounter, 1) % 10000000
	return prefix + base + fmt.Sprintf("%07d", counter)
}
