package probe

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/hamed0406/ssping/internal/proxy"
	"github.com/hamed0406/ssping/internal/target"
)

const DefaultUserAgent = "ssping/dev"

// Executor sends one GET through the proxy per call to Probe. Every call
// starts from a fresh connection.
type Executor struct {
	Connector proxy.Connector
	Server    proxy.Server
	Target    target.Target
	UserAgent string
	Logger    *zap.Logger
}

func NewExecutor(logger *zap.Logger, c proxy.Connector, srv proxy.Server, tgt target.Target, userAgent string) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Executor{
		Connector: c,
		Server:    srv,
		Target:    tgt,
		UserAgent: userAgent,
		Logger:    logger,
	}
}

// Probe returns the response status code. It does not judge the status;
// any error is a *Failure.
func (e *Executor) Probe(ctx context.Context) (int, error) {
	stream, err := e.Connector.Connect(ctx, e.Server, e.Target)
	if err != nil {
		return 0, e.fail(StageConnect, err)
	}

	cc, err := handshake(ctx, stream)
	if err != nil {
		_ = stream.Close()
		return 0, e.fail(StageHandshake, err)
	}

	req, err := e.newRequest(ctx)
	if err != nil {
		cc.close()
		return 0, e.fail(StageSend, err)
	}
	resp, err := cc.roundTrip(req)
	if err != nil {
		cc.close()
		return 0, e.fail(StageSend, err)
	}

	// Nobody waits for the connection to wind down.
	go cc.release(resp)

	return resp.StatusCode, nil
}

func (e *Executor) newRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.Target.URL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Host = ""
	if e.Target.SendsHostHeader() {
		req.Host = e.Target.Host
	}
	return req, nil
}

func (e *Executor) fail(stage Stage, err error) error {
	e.Logger.Debug("probe_failed",
		zap.String("stage", stage.String()),
		zap.String("target", e.Target.Host),
		zap.String("proxy", e.Server.Host()),
		zap.Error(err),
	)
	return &Failure{Stage: stage, Err: err}
}

var _ Prober = (*Executor)(nil)
