// Package filter implements the pipeline stages: the producer, the network
// impairment and reordering filters, pass-through observers and the sinks.
package filter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/config"
	"github.com/pion/logging"
)

var ErrNoOutput = errors.New("filter: no output file configured")

// Env is what every filter constructor receives.
type Env struct {
	Config *config.Config
	Logger logging.LoggerFactory
	// Stdout receives text output of filters without a configured file.
	Stdout io.Writer
}

func (e Env) stdout() io.Writer {
	if e.Stdout == nil {
		return os.Stdout
	}
	return e.Stdout
}

// StartTime is the send clock of the first packet. It defaults to the epoch
// so that runs without an explicit start are reproducible.
func StartTime(cfg *config.Config) (time.Time, error) {
	return cfg.Time("global:start_time", time.Unix(0, 0))
}

// outputFile is a buffered file that reports the first write or close error.
type outputFile struct {
	path string
	f    *os.File
	*bufio.Writer
}

func createOutput(path string) (*outputFile, error) {
	f, err := openOutput(path)
	if err != nil {
		return nil, err
	}
	return &outputFile{path: path, f: f, Writer: bufio.NewWriter(f)}, nil
}

// openOutput creates path and its parent directories, unbuffered.
func openOutput(path string) (*os.File, error) {
	if path == "" {
		return nil, ErrNoOutput
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open output file: %w", err)
	}
	return f, nil
}

func (o *outputFile) Close() error {
	if err := o.Flush(); err != nil {
		_ = o.f.Close()
		return err
	}
	return o.f.Close()
}

// textOutput opens path, or wraps stdout when path is empty.
func textOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	o, err := createOutput(path)
	if err != nil {
		return nil, nil, err
	}
	return o, o.Close, nil
}
