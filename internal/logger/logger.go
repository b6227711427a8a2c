package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap SugaredLogger with the printf-style helpers the CLI uses
type Logger struct {
	*zap.SugaredLogger
}

// New creates a new logger writing to stdout
func New(verbose bool) *Logger {
	return NewWriter(os.Stdout, verbose)
}

// NewWriter creates a new logger that writes to the provided writer.
// Debug messages are only emitted when verbose is set.
func NewWriter(w io.Writer, verbose bool) *Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000000")

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Printf logs at info level
func (l *Logger) Printf(format string, args ...interface{}) {
	l.Infof(format, args...)
}

// Println logs at info level
func (l *Logger) Println(args ...interface{}) {
	l.Infoln(args...)
}
