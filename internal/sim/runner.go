// Package sim assembles the filter graph from a configuration and runs it.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/capture"
	"github.com/lars-sto/rtp-capture-simulation/internal/codec"
	"github.com/lars-sto/rtp-capture-simulation/internal/config"
	"github.com/lars-sto/rtp-capture-simulation/internal/filter"
	"github.com/lars-sto/rtp-capture-simulation/internal/netem"
	"github.com/lars-sto/rtp-capture-simulation/internal/pipeline"
	"github.com/lars-sto/rtp-capture-simulation/internal/upload"
	"github.com/pion/interceptor"
	"github.com/pion/logging"
)

var ErrNoSink = errors.New("sim: no output configured")

// Uploader ships a finished output file somewhere and returns its location.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

type RunOptions struct {
	Config *config.Config
	Logger logging.LoggerFactory
	Stdout io.Writer

	Source codec.Source
	// Encoder defaults to global:codec.
	Encoder codec.Encoder

	// Scenario labels the result.
	Scenario string

	// RTPWriter, when set, receives every delivered packet. With
	// interceptor:trace_filename set it sits behind the tracing chain.
	RTPWriter interceptor.RTPWriter
	// Uploader defaults to S3 when upload:s3_uri is set.
	Uploader Uploader
}

// Graph is the assembled pipeline:
//
//	producer -> produced -> loss -> delay -> sort -> delivered -> log -> sipp -> sinks
type Graph struct {
	Producer  *filter.Producer
	Produced  *filter.Stats
	Loss      *filter.Impairment
	Delay     *filter.Impairment
	Sort      *filter.Sort
	Delivered *filter.Stats
	Log       *filter.Log
	Sipp      *filter.Sipp
	RTPWriter *filter.RTPWriterSink
	Sinks     []pipeline.Filter

	// Outputs are the files the sinks write.
	Outputs []string
	Rand    *netem.Rand

	rate  int
	trace *rtpTrace
}

func Build(opt RunOptions) (*Graph, error) {
	cfg := opt.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opt.Source == nil {
		return nil, errors.New("sim: no pcm source")
	}
	enc := opt.Encoder
	if enc == nil {
		c, err := codec.Lookup(cfg.String("global:codec", "pcmu"))
		if err != nil {
			return nil, err
		}
		enc = c
	}
	seed, err := cfg.Int("network_emulator:random_seed", 0)
	if err != nil {
		return nil, err
	}
	env := filter.Env{Config: cfg, Logger: opt.Logger, Stdout: opt.Stdout}

	g := &Graph{Rand: netem.NewRand(int64(seed)), rate: enc.SampleRate()}
	g.Producer = filter.NewProducer(env, enc, opt.Source)
	g.Produced = filter.NewStats(env, "produced")
	g.Loss = filter.NewLoss(env, g.Rand)
	g.Delay = filter.NewDelay(env, g.Rand)
	g.Sort = filter.NewSort(env)
	g.Delivered = filter.NewStats(env, "delivered")
	g.Log = filter.NewLog(env)
	g.Sipp = filter.NewSipp(env)

	if path := cfg.String("pcap:filename", ""); path != "" {
		g.Sinks = append(g.Sinks, filter.NewPcapSink(env))
		g.Outputs = append(g.Outputs, path)
	}
	if path := cfg.String("rtpdump:filename", ""); path != "" {
		g.Sinks = append(g.Sinks, filter.NewRtpdumpSink(env))
		g.Outputs = append(g.Outputs, path)
	}
	if path := cfg.String("wavfile_output:filename", ""); path != "" {
		g.Sinks = append(g.Sinks, filter.NewWavSink(env))
		g.Outputs = append(g.Outputs, path)
	}
	next := opt.RTPWriter
	if path := cfg.String("interceptor:trace_filename", ""); path != "" {
		ep, err := capture.EndpointsFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		info := &interceptor.StreamInfo{
			SSRC:        ep.SSRC,
			PayloadType: enc.PayloadType(),
			ClockRate:   uint32(enc.SampleRate()),
		}
		if g.trace, err = newRTPTrace(path, info, next); err != nil {
			return nil, err
		}
		next = g.trace.writer
		g.Outputs = append(g.Outputs, path)
	}
	if next != nil {
		g.RTPWriter = filter.NewRTPWriterSink(env, next)
		g.Sinks = append(g.Sinks, g.RTPWriter)
	}
	if len(g.Sinks) == 0 {
		return nil, ErrNoSink
	}

	chain := []interface {
		pipeline.Filter
		AddObserver(pipeline.Filter)
	}{g.Producer, g.Produced, g.Loss, g.Delay, g.Sort, g.Delivered, g.Log, g.Sipp}
	for i := 1; i < len(chain); i++ {
		chain[i-1].AddObserver(chain[i])
	}
	for _, s := range g.Sinks {
		g.Sipp.AddObserver(s)
	}
	if err := pipeline.Validate(g.Producer); err != nil {
		_ = g.Close()
		return nil, err
	}
	return g, nil
}

// Close releases what the graph holds open after a run.
func (g *Graph) Close() error {
	if g.trace == nil {
		return nil
	}
	err := g.trace.Close()
	g.trace = nil
	return err
}

// logFilters dumps the final state of every filter at debug level.
func (g *Graph) logFilters(log logging.LeveledLogger) {
	pipeline.Walk(g.Producer, func(f pipeline.Filter) {
		if s, ok := f.(interface{ State() pipeline.State }); ok {
			log.Debugf("filter %s kind=%s state=%s", f.Name(), f.Kind(), s.State())
		}
	})
}

// Result collects the counters of a finished graph.
func (g *Graph) Result(scenario string) RunResult {
	produced, delivered := g.Produced.Counters(), g.Delivered.Counters()
	ps := g.Producer.Stats()
	loss := g.Loss.Stats()

	res := RunResult{
		Scenario:        scenario,
		Seed:            g.Rand.Seed(),
		ProducedPkts:    produced.Packets,
		ProducedBytes:   produced.Bytes,
		DroppedPkts:     loss.Dropped,
		SubstitutedPkts: loss.Substituted,
		DeliveredPkts:   delivered.Packets,
		DeliveredBytes:  delivered.Bytes,
		ReorderedPkts:   delivered.Reordered,
		MeanDelay:       delivered.MeanDelay(),
		MaxDelay:        delivered.MaxDelay,
		Outputs:         g.Outputs,
	}
	if g.RTPWriter != nil {
		res.InterceptedPkts = int64(g.RTPWriter.Written())
	}
	if g.rate > 0 {
		res.Duration = time.Duration(ps.Samples) * time.Second / time.Duration(g.rate)
	}
	return res
}

// Run builds the graph, drives it to completion and uploads the outputs
// when an uploader is configured.
func Run(ctx context.Context, opt RunOptions) (RunResult, error) {
	g, err := Build(opt)
	if err != nil {
		return RunResult{}, err
	}
	runErr := g.Producer.Run(ctx)
	if err := g.Close(); runErr == nil {
		runErr = err
	}
	res := g.Result(opt.Scenario)

	lf := opt.Logger
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	g.logFilters(lf.NewLogger("sim"))
	if runErr != nil {
		return res, runErr
	}

	up := opt.Uploader
	if up == nil {
		if up, err = s3Uploader(ctx, opt); err != nil {
			return res, err
		}
	}
	if up == nil {
		return res, nil
	}
	for _, path := range g.Outputs {
		loc, err := up.Upload(ctx, path)
		if err != nil {
			return res, fmt.Errorf("upload %s: %w", path, err)
		}
		res.Uploaded = append(res.Uploaded, loc)
	}
	return res, nil
}

func s3Uploader(ctx context.Context, opt RunOptions) (Uploader, error) {
	cfg := opt.Config
	if cfg == nil {
		return nil, nil
	}
	uri := cfg.String("upload:s3_uri", "")
	if uri == "" {
		return nil, nil
	}
	del, err := cfg.Bool("upload:delete_local", false)
	if err != nil {
		return nil, err
	}
	u, err := upload.NewUploader(ctx, uri, cfg.String("upload:s3_region", ""), opt.Logger)
	if err != nil {
		return nil, err
	}
	u.DeleteLocal = del
	return u, nil
}
