// Package logx adapts logrus to the pion logging interfaces used by the
// library packages.
package logx

import (
	"io"

	"github.com/pion/logging"
	"github.com/sirupsen/logrus"
)

// Factory hands out scoped loggers that all write through one logrus.Logger.
type Factory struct {
	Logger *logrus.Logger
}

var _ logging.LoggerFactory = (*Factory)(nil)

func NewFactory(l *logrus.Logger) *Factory {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Factory{Logger: l}
}

// New builds a logrus logger writing to w at the named level.
func New(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return l, nil
}

// Discard returns a factory whose loggers drop everything.
func Discard() *Factory {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Factory{Logger: l}
}

func (f *Factory) NewLogger(scope string) logging.LeveledLogger {
	return &leveled{e: f.Logger.WithField("scope", scope)}
}

type leveled struct {
	e *logrus.Entry
}

func (l *leveled) Trace(msg string)                          { l.e.Trace(msg) }
func (l *leveled) Tracef(format string, args ...interface{}) { l.e.Tracef(format, args...) }
func (l *leveled) Debug(msg string)                          { l.e.Debug(msg) }
func (l *leveled) Debugf(format string, args ...interface{}) { l.e.Debugf(format, args...) }
func (l *leveled) Info(msg string)                           { l.e.Info(msg) }
func (l *leveled) Infof(format string, args ...interface{})  { l.e.Infof(format, args...) }
func (l *leveled) Warn(msg string)                           { l.e.Warn(msg) }
func (l *leveled) Warnf(format string, args ...interface{})  { l.e.Warnf(format, args...) }
func (l *leveled) Error(msg string)                          { l.e.Error(msg) }
func (l *leveled) Errorf(format string, args ...interface{}) { l.e.Errorf(format, args...) }
