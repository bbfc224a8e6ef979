// Package pipeline is the observer-style dispatch that carries RTP packets
// from a producer through impairment filters to the output sinks.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/pion/logging"
)

type Event int

const (
	TransmissionStart Event = iota
	NewPacket
	TransmissionEnd
)

func (e Event) String() string {
	switch e {
	case TransmissionStart:
		return "TRANSMISSION_START"
	case NewPacket:
		return "NEW_PACKET"
	case TransmissionEnd:
		return "TRANSMISSION_END"
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Kind is the closed set of filter kinds a pipeline is built from.
type Kind int

const (
	KindProducer Kind = iota
	KindLoss
	KindDelay
	KindSort
	KindLog
	KindPcapSink
	KindRtpdumpSink
	KindWavSink
	KindSipp
	KindStats
	KindRTPWriter
)

var kindNames = [...]string{
	KindProducer:    "producer",
	KindLoss:        "loss",
	KindDelay:       "delay",
	KindSort:        "sort",
	KindLog:         "log",
	KindPcapSink:    "pcap",
	KindRtpdumpSink: "rtpdump",
	KindWavSink:     "wav",
	KindSipp:        "sipp",
	KindStats:       "stats",
	KindRTPWriter:   "rtp_writer",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Filter is one node of the pipeline DAG.
//
// Notify returns nil for Ok, an error wrapped with Warn for a recoverable
// condition, and any other error for a fatal one. For START and END events
// the view is zero.
type Filter interface {
	Name() string
	Kind() Kind
	Notify(ev Event, p packet.View) error
}

// Subject fans events out to observers in insertion order.
type Subject struct {
	name      string
	observers []Filter
	log       logging.LeveledLogger
}

func NewSubject(name string, log logging.LeveledLogger) Subject {
	return Subject{name: name, log: log}
}

func (s *Subject) AddObserver(f Filter) {
	if f != nil {
		s.observers = append(s.observers, f)
	}
}

func (s *Subject) Observers() []Filter { return s.observers }

// NotifyObservers delivers ev to every observer, even after one has failed.
// Warnings are logged. The first fatal error is logged and returned once the
// broadcast is complete.
func (s *Subject) NotifyObservers(ev Event, p packet.View) error {
	var fatal error
	for _, o := range s.observers {
		err := o.Notify(ev, p)
		switch StatusOf(err) {
		case StatusOK:
		case StatusWarn:
			if s.log != nil {
				s.log.Warnf("%s -> %s: %v", s.name, o.Name(), err)
			}
		default:
			if s.log != nil {
				s.log.Errorf("%s -> %s: %s: %v", s.name, o.Name(), ev, err)
			}
			if fatal == nil {
				fatal = fmt.Errorf("%s: %w", o.Name(), err)
			}
		}
	}
	return fatal
}

// Walk visits root and everything reachable from it once, depth first.
func Walk(root Filter, visit func(Filter)) {
	seen := map[Filter]bool{}
	var rec func(Filter)
	rec = func(f Filter) {
		if seen[f] {
			return
		}
		seen[f] = true
		visit(f)
		if o, ok := f.(interface{ Observers() []Filter }); ok {
			for _, c := range o.Observers() {
				rec(c)
			}
		}
	}
	rec(root)
}

// ErrCycle is returned by Validate when a filter can reach itself.
var ErrCycle = errors.New("pipeline: cycle detected")

// Validate checks that the graph under root is acyclic.
func Validate(root Filter) error {
	const (
		unvisited = iota
		active
		done
	)
	state := map[Filter]int{}
	var rec func(Filter) error
	rec = func(f Filter) error {
		switch state[f] {
		case active:
			return fmt.Errorf("%w at %s", ErrCycle, f.Name())
		case done:
			return nil
		}
		state[f] = active
		if o, ok := f.(interface{ Observers() []Filter }); ok {
			for _, c := range o.Observers() {
				if err := rec(c); err != nil {
					return err
				}
			}
		}
		state[f] = done
		return nil
	}
	return rec(root)
}
