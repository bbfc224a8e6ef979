package filter

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/lars-sto/rtp-capture-simulation/internal/pipeline"
)

var logHeader = []string{
	"seq", "rtp_ts", "pt", "marker", "frames", "size",
	"send_unix_nano", "delay_us", "capture_unix_nano", "delta_us",
}

// Log writes one CSV row per packet to log:filename, or to stdout when no
// file is configured, and forwards every event unchanged.
type Log struct {
	pipeline.Base
	env Env

	enabled bool
	w       *csv.Writer
	close   func() error
	rows    int
	prev    time.Time
}

func NewLog(env Env) *Log {
	return &Log{
		Base: pipeline.NewBase("log", pipeline.KindLog, env.Logger),
		env:  env,
	}
}

func (l *Log) Notify(ev pipeline.Event, v packet.View) error {
	switch ev {
	case pipeline.TransmissionStart:
		if err := l.Begin(); err != nil {
			return err
		}
		if err := l.open(); err != nil {
			return err
		}
	case pipeline.NewPacket:
		if err := l.Running(); err != nil {
			return err
		}
		if l.enabled {
			if err := l.row(v); err != nil {
				return err
			}
		}
	case pipeline.TransmissionEnd:
		err := l.shutdown()
		if fwd := l.NotifyObservers(ev, v); err == nil {
			err = fwd
		}
		return err
	default:
		return fmt.Errorf("%s: unknown event %s", l.Name(), ev)
	}
	return l.NotifyObservers(ev, v)
}

func (l *Log) open() error {
	var err error
	if l.enabled, err = l.env.Config.Bool("log:enabled", false); err != nil || !l.enabled {
		return err
	}
	out, closeFn, err := textOutput(l.env.Config.String("log:filename", ""), l.env.stdout())
	if err != nil {
		return err
	}
	l.w, l.close = csv.NewWriter(out), closeFn
	if err := l.w.Write(logHeader); err != nil {
		_ = closeFn()
		return err
	}
	return nil
}

func (l *Log) row(v packet.View) error {
	// signed gap to the previous row, negative when reordered
	var delta time.Duration
	if l.rows > 0 {
		delta = v.CaptureTime().Sub(l.prev)
	}
	l.prev = v.CaptureTime()
	err := l.w.Write([]string{
		strconv.FormatUint(uint64(v.SequenceNumber()), 10),
		strconv.FormatUint(uint64(v.Timestamp()), 10),
		strconv.FormatUint(uint64(v.PayloadType()), 10),
		strconv.FormatBool(v.Marker()),
		strconv.Itoa(v.FrameCount()),
		strconv.Itoa(v.PayloadSize()),
		strconv.FormatInt(v.Wallclock().UnixNano(), 10),
		strconv.FormatInt(v.Delay().Microseconds(), 10),
		strconv.FormatInt(v.CaptureTime().UnixNano(), 10),
		strconv.FormatInt(delta.Microseconds(), 10),
	})
	if err != nil {
		return pipeline.Warn(err)
	}
	l.rows++
	return nil
}

func (l *Log) shutdown() error {
	if !l.Finish() || !l.enabled {
		return nil
	}
	l.w.Flush()
	err := l.w.Error()
	if cerr := l.close(); err == nil {
		err = cerr
	}
	l.Log.Debugf("wrote %d rows", l.rows)
	return err
}
