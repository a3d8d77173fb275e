package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCounters_RecordKeepsTotal(t *testing.T) {
	var c Counters
	for i, up := range []bool{true, false, false, true, true} {
		c.Record(up)
		if c.Total != uint64(i+1) {
			t.Fatalf("total=%d after %d records", c.Total, i+1)
		}
		if c.Total != c.Success+c.Error {
			t.Fatalf("total %d != success %d + error %d", c.Total, c.Success, c.Error)
		}
	}
	if c.Success != 3 || c.Error != 2 {
		t.Fatalf("unexpected counters: %+v", c)
	}
}

func TestNewRunID(t *testing.T) {
	at := time.Date(2025, 8, 18, 12, 0, 1, 5, time.FixedZone("X", 3600))
	if got := NewRunID(at); got != "20250818T110001.000000005" {
		t.Fatalf("run id: %q", got)
	}
}

func TestRunSummary_JSONFlattensCounters(t *testing.T) {
	s := RunSummary{
		RunID:    "R1",
		Target:   "www.google.com",
		Proxy:    "proxy.example.net",
		Counters: Counters{Total: 3, Success: 2, Error: 1},
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["total"] != float64(3) || m["success"] != float64(2) || m["error"] != float64(1) {
		t.Fatalf("counters not flattened: %s", b)
	}
	if m["target"] != "www.google.com" {
		t.Fatalf("target missing: %s", b)
	}
}
