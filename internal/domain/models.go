package domain

import "time"

// RunID identifies one invocation of the probe loop.
type RunID string

// NewRunID formats t like 20060102T150405.000000000.
func NewRunID(t time.Time) RunID {
	return RunID(t.UTC().Format("20060102T150405.000000000"))
}

// ProbeResult is the stored form of one probe.
type ProbeResult struct {
	RunID      RunID     `json:"run_id"`
	Seq        uint64    `json:"seq"`
	Target     string    `json:"target"`
	Proxy      string    `json:"proxy"`
	Up         bool      `json:"up"`
	HTTPStatus int       `json:"http_status,omitempty"`
	LatencyMS  float64   `json:"latency_ms"`
	Reason     string    `json:"reason,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// Counters is the running tally of a loop. Total == Success + Error holds
// after every recorded probe.
type Counters struct {
	Total   uint64 `json:"total"`
	Success uint64 `json:"success"`
	Error   uint64 `json:"error"`
}

// Record counts one probe.
func (c *Counters) Record(up bool) {
	c.Total++
	if up {
		c.Success++
	} else {
		c.Error++
	}
}

// RunSummary describes a run as a whole.
type RunSummary struct {
	RunID     RunID     `json:"run_id"`
	Target    string    `json:"target"`
	Proxy     string    `json:"proxy"`
	StartedAt time.Time `json:"started_at"`
	Counters
}
