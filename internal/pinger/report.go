package pinger

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/ssping/internal/domain"
	"github.com/hamed0406/ssping/internal/probe"
)

// Exit codes of the ssping process.
const (
	ExitSuccess = 0
	ExitNoReply = 1
	ExitFailure = 2
)

func (l *Loop) header() {
	l.Logger.Info(fmt.Sprintf("PING %s via %s.", l.Config.Target.Host, l.Config.Server.Host()),
		zap.String("run_id", string(l.Config.RunID)),
		zap.String("target", l.Config.Target.URL()),
		zap.String("proxy", l.Config.Server.String()),
		zap.Duration("interval", l.Config.Interval.Duration()),
	)
}

// report writes the per-probe line. The message is what a terminal shows;
// the fields end up in the JSON log only.
func (l *Loop) report(seq uint64, out probe.Outcome) {
	tgt, via := l.Config.Target.Host, l.Config.Server.Host()
	fields := []zap.Field{
		zap.String("run_id", string(l.Config.RunID)),
		zap.Uint64("seq", seq),
		zap.String("target", tgt),
		zap.String("proxy", via),
		zap.Float64("latency_ms", out.LatencyMS()),
		zap.Bool("up", out.Success()),
	}
	if out.Err != nil {
		l.Logger.Info(fmt.Sprintf("From %s via %s: %s", tgt, via, out.Err),
			append(fields, zap.Error(out.Err))...)
		return
	}
	l.Logger.Info(fmt.Sprintf("Status %d from %s via %s: time=%.1fms", out.Status, tgt, via, out.LatencyMS()),
		append(fields, zap.Int("status", out.Status))...)
}

// Summary prints the closing statistics block. Nothing is printed when no
// probe was attempted.
func Summary(logger *zap.Logger, c domain.Counters, elapsed time.Duration) {
	if c.Total == 0 {
		return
	}
	ms := float64(elapsed) / float64(time.Millisecond)
	logger.Info("--- ping statistics ---")
	logger.Info(fmt.Sprintf("%d attempted, %d succeeded, %d errors, time %.0fms", c.Total, c.Success, c.Error, ms),
		zap.Uint64("total", c.Total),
		zap.Uint64("success", c.Success),
		zap.Uint64("error", c.Error),
		zap.Float64("elapsed_ms", ms),
	)
}

// ExitCode maps the run result to the process exit status: a fatal error
// wins, then any success, else ExitNoReply (this includes zero probes).
func ExitCode(c domain.Counters, err error) int {
	switch {
	case err != nil:
		return ExitFailure
	case c.Success > 0:
		return ExitSuccess
	default:
		return ExitNoReply
	}
}

func statusReason(code int) string {
	if text := http.StatusText(code); text != "" {
		return fmt.Sprintf("%d %s", code, text)
	}
	return fmt.Sprintf("%d", code)
}
