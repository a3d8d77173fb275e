package probe

import (
	"context"
	"time"
)

// Outcome is the result of a single probe as seen by the loop.
//
// Fields:
//   - Status: HTTP status code when a response arrived; 0 otherwise.
//   - Err: nil when a status line was read, else a *Failure.
type Outcome struct {
	Elapsed time.Duration
	Status  int
	Err     error
}

// Success is true for a 2xx status.
func (o Outcome) Success() bool {
	return o.Err == nil && o.Status >= 200 && o.Status < 300
}

// LatencyMS is Elapsed in fractional milliseconds.
func (o Outcome) LatencyMS() float64 {
	return float64(o.Elapsed) / float64(time.Millisecond)
}

// Prober performs one probe and returns the HTTP status code.
type Prober interface {
	Probe(ctx context.Context) (int, error)
}
