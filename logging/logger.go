package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/resinkit/resinkit-go/core"
)

var _ core.Logger = (*Logger)(nil)

// Logger writes core log messages through logrus.
type Logger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

type Option func(*logrus.Logger)

func WithOutput(w io.Writer) Option {
	return func(l *logrus.Logger) {
		l.SetOutput(w)
	}
}

func WithLevel(level logrus.Level) Option {
	return func(l *logrus.Logger) {
		l.SetLevel(level)
	}
}

// WithJSON switches to the json formatter.
func WithJSON() Option {
	return func(l *logrus.Logger) {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
}

// New returns a logger writing text to stderr at info level unless
// configured otherwise.
func New(opts ...Option) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	for _, opt := range opts {
		opt(l)
	}

	return &Logger{
		logger: l,
		fields: logrus.Fields{},
	}
}

// ParseLevel parses a level name, an empty name is info.
func ParseLevel(level string) (logrus.Level, error) {
	if level == "" {
		return logrus.InfoLevel, nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("logrus.ParseLevel: %w", err)
	}
	return lvl, nil
}

// With returns a logger that adds key to every entry.
func (l *Logger) With(key string, value any) *Logger {
	fields := make(logrus.Fields, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value

	return &Logger{
		logger: l.logger,
		fields: fields,
	}
}

func (l *Logger) log(level logrus.Level, message string) {
	l.logger.WithFields(l.fields).Log(level, message)
}

func (l *Logger) Debug(msg string) {
	l.log(logrus.DebugLevel, msg)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.log(logrus.DebugLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(msg string) {
	l.log(logrus.InfoLevel, msg)
}

func (l *Logger) Infof(format string, args ...any) {
	l.log(logrus.InfoLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(msg string) {
	l.log(logrus.WarnLevel, msg)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.log(logrus.WarnLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) Error(msg string) {
	l.log(logrus.ErrorLevel, msg)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.log(logrus.ErrorLevel, fmt.Sprintf(format, args...))
}
