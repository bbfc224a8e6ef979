package pipeline

import (
	"errors"
	"fmt"

	"github.com/pion/logging"
)

var (
	ErrNotStarted     = errors.New("pipeline: filter not started")
	ErrAlreadyStarted = errors.New("pipeline: filter already started")
	ErrClosed         = errors.New("pipeline: filter closed")
)

// State is the per-filter lifecycle.
type State int

const (
	Uninitialized State = iota
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Active:
		return "active"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Base carries what every filter shares: identity, observers, logger and
// lifecycle. Concrete filters embed it.
type Base struct {
	Subject
	name  string
	kind  Kind
	state State
	Log   logging.LeveledLogger
}

func NewBase(name string, kind Kind, lf logging.LoggerFactory) Base {
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	log := lf.NewLogger(kind.String())
	return Base{Subject: NewSubject(name, log), name: name, kind: kind, Log: log}
}

func (b *Base) Name() string { return b.name }
func (b *Base) Kind() Kind   { return b.kind }
func (b *Base) State() State { return b.state }

// Begin moves the filter to Active. It fails if START was already seen.
func (b *Base) Begin() error {
	if b.state != Uninitialized {
		return fmt.Errorf("%s: %w", b.name, ErrAlreadyStarted)
	}
	b.state = Active
	return nil
}

// Running reports an error unless the filter is Active.
func (b *Base) Running() error {
	switch b.state {
	case Uninitialized:
		return fmt.Errorf("%s: %w", b.name, ErrNotStarted)
	case Closed:
		return fmt.Errorf("%s: %w", b.name, ErrClosed)
	}
	return nil
}

// Finish moves the filter to Closed and reports whether it had been Active.
// Callers release their state only when it returns true.
func (b *Base) Finish() bool {
	was := b.state == Active
	b.state = Closed
	return was
}
