// internal/types/ids.go
package types

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

type ProjectID string

// RequestID identifies one submit call. Format per spec §4.4:
// "<monotonic-counter>-<process-random-suffix>". The counter is scoped to
// the process (not persisted across restarts); the random suffix prevents
// collisions across process restarts that reset the counter.
type RequestID string

var requestCounter atomic.Int64

var processSuffix = uuid.New().String()[:8]

// NewRequestID returns the next request id for this process.
func NewRequestID() RequestID {
	n := requestCounter.Add(1)
	return RequestID(fmt.Sprintf("%d-%s", n, processSuffix))
}
