package pinger

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/hamed0406/ssping/internal/domain"
	"github.com/hamed0406/ssping/internal/interval"
	"github.com/hamed0406/ssping/internal/probe"
	"github.com/hamed0406/ssping/internal/proxy"
	"github.com/hamed0406/ssping/internal/target"
)

// Config is fixed for the lifetime of a Loop.
type Config struct {
	Server   proxy.Server
	Target   target.Target
	MaxCount *uint64 // nil means no limit
	Interval interval.Interval
	RunID    domain.RunID
}

// Loop runs probes one after another and tallies them.
type Loop struct {
	Logger   *zap.Logger
	Config   Config
	Prober   probe.Prober
	Clock    clockwork.Clock
	Observer Observer
}

func NewLoop(logger *zap.Logger, cfg Config, prober probe.Prober, clock clockwork.Clock, obs Observer) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.RunID == "" {
		cfg.RunID = domain.NewRunID(clock.Now())
	}
	return &Loop{
		Logger:   logger,
		Config:   cfg,
		Prober:   prober,
		Clock:    clock,
		Observer: obs,
	}
}

// Run probes until the count limit is reached or ctx is cancelled, and
// returns what was counted. A probe still in flight when ctx is cancelled is
// dropped without being counted.
func (l *Loop) Run(ctx context.Context) domain.Counters {
	var c domain.Counters
	l.header()

	for l.more(c) {
		if c.Total > 0 && !l.wait(ctx) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		start := l.Clock.Now()
		status, err := l.Prober.Probe(ctx)
		elapsed := l.Clock.Since(start)
		if ctx.Err() != nil {
			l.Logger.Debug("probe_abandoned", zap.Uint64("seq", c.Total+1))
			break
		}

		out := probe.Outcome{Elapsed: elapsed, Status: status, Err: err}
		c.Record(out.Success())
		l.report(c.Total, out)
		l.observe(ctx, c, out)
	}
	return c
}

func (l *Loop) more(c domain.Counters) bool {
	return l.Config.MaxCount == nil || c.Total < *l.Config.MaxCount
}

// wait sleeps for the interval unless ctx ends first.
func (l *Loop) wait(ctx context.Context) bool {
	d := l.Config.Interval.Duration()
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := l.Clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.Chan():
		return true
	}
}

func (l *Loop) observe(ctx context.Context, c domain.Counters, out probe.Outcome) {
	if l.Observer == nil {
		return
	}
	r := l.result(c.Total, out)
	if err := l.Observer.Observe(ctx, r, c); err != nil {
		l.Logger.Warn("observer_error", zap.Uint64("seq", c.Total), zap.Error(err))
	}
}

func (l *Loop) result(seq uint64, out probe.Outcome) domain.ProbeResult {
	r := domain.ProbeResult{
		RunID:      l.Config.RunID,
		Seq:        seq,
		Target:     l.Config.Target.Host,
		Proxy:      l.Config.Server.Host(),
		Up:         out.Success(),
		HTTPStatus: out.Status,
		LatencyMS:  out.LatencyMS(),
		CheckedAt:  l.Clock.Now().UTC(),
	}
	if out.Err != nil {
		r.Reason = out.Err.Error()
	} else {
		r.Reason = statusReason(out.Status)
	}
	return r
}
