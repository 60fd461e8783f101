package app

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Logger interface and implementations
type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type NoopLogger struct{}

func (NoopLogger) Infof(component, format string, args ...interface{})  {}
func (NoopLogger) Errorf(component, format string, args ...interface{}) {}

type FileLogger struct{ w io.Writer }

func NewFileLogger(w io.Writer) FileLogger { return FileLogger{w: w} }
func (l FileLogger) Infof(component string, format string, args ...interface{}) {
	writeLog(l.w, "INFO", component, format, args...)
}
func (l FileLogger) Errorf(component string, format string, args ...interface{}) {
	writeLog(l.w, "ERROR", component, format, args...)
}

func writeLog(w io.Writer, level, component, format string, args ...interface{}) {
	timestamp := time.Now().Format(time.RFC3339)
	msg := fmt.Sprintf(format, args...)
	_, _ = io.WriteString(w, timestamp+" ["+level+"] "+component+": "+msg+"\n")
}

// ZapLogger writes structured JSON records. The component becomes a field
// rather than a message prefix.
type ZapLogger struct{ l *zap.Logger }

// NewZapLogger builds a production zap logger appending to path. An empty
// path logs to stderr.
func NewZapLogger(path string) (ZapLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	if path != "" {
		cfg.OutputPaths = []string{path}
		cfg.ErrorOutputPaths = []string{path}
	}
	l, err := cfg.Build()
	if err != nil {
		return ZapLogger{}, fmt.Errorf("build zap logger: %w", err)
	}
	return ZapLogger{l: l}, nil
}

func NewZapLoggerFrom(l *zap.Logger) ZapLogger { return ZapLogger{l: l} }

func (z ZapLogger) Infof(component string, format string, args ...interface{}) {
	z.l.Info(fmt.Sprintf(format, args...), zap.String("component", component))
}

func (z ZapLogger) Errorf(component string, format string, args ...interface{}) {
	z.l.Error(fmt.Sprintf(format, args...), zap.String("component", component))
}

// Sync flushes buffered records.
func (z ZapLogger) Sync() error { return z.l.Sync() }
