package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the JSON log written under Options.Dir.
const FileName = "ssping.log"

type Options struct {
	// Dir enables the rotating JSON log when non-empty.
	Dir string
	// Console receives the human readable lines. Nil disables it.
	Console io.Writer
	Verbose bool
}

// NewLogger builds a logger that prints bare messages to the console and,
// when a directory is given, the full structured entry to a rotated file.
func NewLogger(opts Options) (*zap.Logger, error) {
	level := zap.InfoLevel
	if opts.Verbose {
		level = zap.DebugLevel
	}

	var cores []zapcore.Core
	if opts.Console != nil {
		cores = append(cores, newConsoleCore(zapcore.AddSync(opts.Console), level))
	}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, err
		}
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, FileName),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		})
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

// consoleCore writes only the message for info entries, which are the ping
// lines. Debug, warning and error entries keep their fields.
type consoleCore struct {
	zapcore.Core
}

func newConsoleCore(w zapcore.WriteSyncer, level zapcore.LevelEnabler) zapcore.Core {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
	return consoleCore{zapcore.NewCore(enc, w, level)}
}

func (c consoleCore) With([]zapcore.Field) zapcore.Core { return c }

func (c consoleCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c consoleCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	if e.Level == zapcore.InfoLevel {
		fields = nil
	}
	return c.Core.Write(e, fields)
}
