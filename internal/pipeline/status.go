package pipeline

import "errors"

type Status int

const (
	StatusOK Status = iota
	StatusWarn
	StatusFatal
	// StatusStop ends option handling before a pipeline exists. Filters never
	// return it.
	StatusStop
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarn:
		return "warn"
	case StatusFatal:
		return "fatal"
	case StatusStop:
		return "stop"
	}
	return "unknown"
}

// ErrStop signals a clean exit requested during option handling.
var ErrStop = errors.New("stop")

type warning struct{ err error }

func (w *warning) Error() string { return w.err.Error() }
func (w *warning) Unwrap() error { return w.err }

// Warn marks err as recoverable: it is logged and processing continues.
func Warn(err error) error {
	if err == nil {
		return nil
	}
	return &warning{err: err}
}

func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var w *warning
	if errors.As(err, &w) {
		return StatusWarn
	}
	if errors.Is(err, ErrStop) {
		return StatusStop
	}
	return StatusFatal
}
