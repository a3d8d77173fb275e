package probe

// Stage is the step of a probe that failed.
type Stage int

const (
	StageConnect Stage = iota + 1
	StageHandshake
	StageSend
)

func (s Stage) String() string {
	switch s {
	case StageConnect:
		return "connect"
	case StageHandshake:
		return "handshake"
	case StageSend:
		return "send"
	default:
		return "unknown"
	}
}

// Failure is the only error type Executor.Probe returns. Its message is short
// and static; the cause is kept for errors.Is/As and the structured log.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string {
	switch f.Stage {
	case StageConnect:
		return "Failed to connect to proxy"
	case StageHandshake:
		return "Failed to start HTTP connection"
	case StageSend:
		return "Failed to send HTTP request"
	default:
		return "Probe failed"
	}
}

func (f *Failure) Unwrap() error { return f.Err }
