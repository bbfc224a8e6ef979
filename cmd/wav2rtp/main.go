// Command wav2rtp turns PCM audio into RTP capture files, passing the stream
// through a simulated network on the way.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/codec"
	"github.com/lars-sto/rtp-capture-simulation/internal/config"
	"github.com/lars-sto/rtp-capture-simulation/internal/logx"
	"github.com/lars-sto/rtp-capture-simulation/internal/pipeline"
	"github.com/lars-sto/rtp-capture-simulation/internal/sim"
)

var version = "dev"

var outputKeys = map[string]string{
	"pcap":    "pcap:filename",
	"rtpdump": "rtpdump:filename",
	"wav":     "wavfile_output:filename",
}

const traceKey = "interceptor:trace_filename"

type options struct {
	input      string
	output     string
	outType    string
	configPath string
	sets       []string
	seed       int64
	scenarios  []string
	runs       int
	summary    string
	s3URI      string
	trace      string
	start      string
	startGiven bool
	noise      time.Duration
	debug      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch pipeline.StatusOf(err) {
	case pipeline.StatusOK, pipeline.StatusStop:
		return
	}
	var logged loggedError
	if !errors.As(err, &logged) {
		fmt.Fprintln(os.Stderr, "wav2rtp:", err)
	}
	stop()
	os.Exit(1)
}

// loggedError marks a failure already reported through the run logger.
type loggedError struct{ error }

func (e loggedError) Unwrap() error { return e.error }

func parseFlags(args []string, stdout io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("wav2rtp", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.StringVar(&o.input, "i", "", "input WAV file, or raw 16-bit LE PCM with a .raw/.pcm extension")
	fs.StringVar(&o.output, "o", "", "output file")
	fs.StringVar(&o.outType, "t", "pcap", "output type: pcap, rtpdump or wav")
	fs.StringVar(&o.configPath, "c", "", "INI configuration file")
	fs.Func("set", "override a configuration value, section:key=value (repeatable)", func(s string) error {
		o.sets = append(o.sets, s)
		return nil
	})
	fs.Int64Var(&o.seed, "seed", 0, "network emulator seed, 0 = time based (run seed = seed + i)")
	scenarios := fs.String("scenario", "", "comma-separated network presets: "+strings.Join(sim.Scenarios(), ", "))
	fs.IntVar(&o.runs, "runs", 1, "repeats per scenario")
	fs.StringVar(&o.summary, "summary", "", "append one CSV row per run to this file")
	fs.StringVar(&o.s3URI, "s3", "", "upload outputs to s3://bucket/prefix")
	fs.StringVar(&o.trace, "trace", "", "dump delivered packets through the RTP interceptor chain to this file")
	fs.StringVar(&o.start, "start", "", "send time of the first packet, RFC 3339 (default now)")
	fs.DurationVar(&o.noise, "noise", 0, "use this much white noise instead of an input file")
	fs.BoolVar(&o.debug, "debug", false, "debug logging")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return o, pipeline.ErrStop
		}
		return o, err
	}
	if *showVersion {
		fmt.Fprintln(stdout, "wav2rtp", version)
		return o, pipeline.ErrStop
	}
	if _, ok := outputKeys[o.outType]; !ok {
		return o, fmt.Errorf("unknown output type %q", o.outType)
	}
	if o.input == "" && o.noise <= 0 {
		return o, errors.New("need -i or -noise")
	}
	if o.runs < 1 {
		return o, fmt.Errorf("-runs must be positive, got %d", o.runs)
	}
	o.scenarios = parseCSVList(*scenarios)
	if len(o.scenarios) == 0 {
		o.scenarios = []string{""}
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	o, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}
	o.startGiven = o.start != ""
	if !o.startGiven {
		o.start = time.Now().UTC().Format(time.RFC3339Nano)
	}

	base, err := o.config("", 0)
	if err != nil {
		return err
	}
	level := base.String("global:log_level", "info")
	if o.debug {
		level = "debug"
	}
	logger, err := logx.New(stderr, level)
	if err != nil {
		return err
	}
	lf := logx.NewFactory(logger)
	log := lf.NewLogger("wav2rtp")
	defer func() {
		if pipeline.StatusOf(err) == pipeline.StatusFatal {
			log.Errorf("wav2rtp failed: %v", err)
			err = loggedError{err}
		}
	}()

	var summary *sim.SummaryCSVWriter
	if o.summary != "" {
		if summary, err = sim.NewSummaryCSVWriter(o.summary); err != nil {
			return err
		}
		defer func() {
			if summary != nil {
				_ = summary.Close()
			}
		}()
	}

	multi := o.runs > 1 || len(o.scenarios) > 1
	for _, sc := range o.scenarios {
		for i := 0; i < o.runs; i++ {
			var runSeed int64
			if o.seed != 0 {
				runSeed = o.seed + int64(i)
			}
			cfg, err := o.config(sc, runSeed)
			if err != nil {
				return err
			}
			if multi {
				renameOutputs(cfg, sc, i)
			}
			res, err := o.runOnce(ctx, cfg, sc, lf, stdout)
			if err != nil {
				return err
			}
			sim.EmitSummary(log, res)
			if summary != nil {
				if err := summary.WriteRow(sim.RowFromResult(res)); err != nil {
					return err
				}
			}
		}
	}
	if summary != nil {
		err, summary = summary.Close(), nil
		return err
	}
	return nil
}

// config layers defaults, the config file, presets and flags.
func (o options) config(scenario string, seed int64) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configPath != "" {
		loaded, err := config.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if scenario != "" {
		if _, err := sim.ApplyScenario(cfg, scenario); err != nil {
			return nil, err
		}
	}
	if o.startGiven || !cfg.Has("global:start_time") {
		cfg.Set("global:start_time", o.start)
	}
	if o.output != "" {
		cfg.Set(outputKeys[o.outType], o.output)
	}
	if o.seed != 0 {
		cfg.Set("network_emulator:random_seed", strconv.FormatInt(seed, 10))
	}
	if o.s3URI != "" {
		cfg.Set("upload:s3_uri", o.s3URI)
	}
	if o.trace != "" {
		cfg.Set(traceKey, o.trace)
	}
	for _, s := range o.sets {
		if err := cfg.SetFlag(s); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (o options) runOnce(ctx context.Context, cfg *config.Config, scenario string, lf *logx.Factory, stdout io.Writer) (sim.RunResult, error) {
	src, closeSrc, err := o.openSource(cfg)
	if err != nil {
		return sim.RunResult{}, err
	}
	defer func() { _ = closeSrc() }()

	label := scenario
	if label == "" {
		label = "custom"
	}
	return sim.Run(ctx, sim.RunOptions{
		Config:   cfg,
		Logger:   lf,
		Stdout:   stdout,
		Source:   src,
		Scenario: label,
	})
}

func (o options) openSource(cfg *config.Config) (codec.Source, func() error, error) {
	if o.input == "" {
		seed, err := cfg.Int("network_emulator:random_seed", 0)
		if err != nil {
			return nil, nil, err
		}
		samples := int(o.noise * 8000 / time.Second)
		return codec.NewWhiteNoise(uint64(seed), samples), func() error { return nil }, nil
	}
	f, err := os.Open(o.input)
	if err != nil {
		return nil, nil, err
	}
	switch strings.ToLower(filepath.Ext(o.input)) {
	case ".raw", ".pcm", ".sw":
		return codec.NewPCMReader(bufio.NewReader(f)), f.Close, nil
	}
	src, format, err := codec.OpenWAV(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if format.SampleRate != 8000 || format.Channels != 1 {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s: need 8000 Hz mono, got %s", o.input, format)
	}
	return src, f.Close, nil
}

// renameOutputs gives every run of a batch its own files.
func renameOutputs(cfg *config.Config, scenario string, run int) {
	if scenario == "" {
		scenario = "custom"
	}
	seed := cfg.String("network_emulator:random_seed", "0")
	rename := func(key string) {
		path := cfg.String(key, "")
		if path == "" {
			return
		}
		ext := filepath.Ext(path)
		cfg.Set(key, fmt.Sprintf("%s__%s__run%d_seed%s%s", strings.TrimSuffix(path, ext), scenario, run, seed, ext))
	}
	for _, key := range outputKeys {
		rename(key)
	}
	rename(traceKey)
}

func parseCSVList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
