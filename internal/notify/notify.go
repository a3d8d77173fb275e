package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/ssping/internal/domain"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Summary renders the end-of-run message.
func Summary(s domain.RunSummary, elapsed time.Duration) (title, text string) {
	title = fmt.Sprintf("ssping %s via %s", s.Target, s.Proxy)
	text = fmt.Sprintf("run %s: %d attempted, %d succeeded, %d errors, time %.0fms",
		s.RunID, s.Total, s.Success, s.Error, float64(elapsed)/float64(time.Millisecond))
	return title, text
}

// SendSummary delivers the end-of-run message. Runs without any probe are
// not reported.
func SendSummary(ctx context.Context, n Notifier, s domain.RunSummary, elapsed time.Duration) error {
	if n == nil || s.Total == 0 {
		return nil
	}
	title, text := Summary(s, elapsed)
	return n.Send(ctx, title, text)
}
