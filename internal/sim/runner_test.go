package sim

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/gopacket/pcapgo"
	"github.com/lars-sto/rtp-capture-simulation/internal/codec"
	"github.com/lars-sto/rtp-capture-simulation/internal/config"
	"github.com/lars-sto/rtp-capture-simulation/internal/logx"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func options(t *testing.T, samples int, kv ...string) (RunOptions, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Set("pcap:filename", filepath.Join(dir, "out.pcap"))
	cfg.Set("network_emulator:random_seed", "1")
	for i := 0; i+1 < len(kv); i += 2 {
		cfg.Set(kv[i], kv[i+1])
	}
	return RunOptions{
		Config: cfg,
		Logger: logx.Discard(),
		Stdout: &bytes.Buffer{},
		Source: codec.NewWhiteNoise(1, samples),
	}, dir
}

func countRecords(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rd, err := pcapgo.NewReader(f)
	require.NoError(t, err)
	n := 0
	for {
		if _, _, err := rd.ReadPacketData(); err != nil {
			return n
		}
		n++
	}
}

func TestRunClean(t *testing.T) {
	opt, dir := options(t, 8000)
	res, err := Run(context.Background(), opt)
	require.NoError(t, err)

	assert.Equal(t, int64(50), res.ProducedPkts)
	assert.Equal(t, int64(50), res.DeliveredPkts)
	assert.Zero(t, res.DroppedPkts)
	assert.Equal(t, uint64(1), res.Seed)
	assert.Equal(t, int64(1000), res.Duration.Milliseconds())
	assert.Equal(t, 50, countRecords(t, filepath.Join(dir, "out.pcap")))
}

func TestRunWithLossAndJitter(t *testing.T) {
	opt, dir := options(t, 8000*5)
	_, err := ApplyScenario(opt.Config, "random_loss")
	require.NoError(t, err)
	_, err = ApplyScenario(opt.Config, "gamma_jitter")
	require.NoError(t, err)
	opt.Scenario = "random_loss+gamma_jitter"

	res, err := Run(context.Background(), opt)
	require.NoError(t, err)
	assert.Equal(t, int64(250), res.ProducedPkts)
	assert.Equal(t, res.ProducedPkts-res.DroppedPkts, res.DeliveredPkts)
	assert.Positive(t, res.MeanDelay)
	assert.Equal(t, int(res.DeliveredPkts), countRecords(t, filepath.Join(dir, "out.pcap")))
}

func TestRunIsReproducible(t *testing.T) {
	read := func() []byte {
		opt, dir := options(t, 8000, "network_emulator:loss_model", "markov",
			"network_emulator:loss_0_1", "0.1", "network_emulator:loss_1_1", "0.5")
		_, err := ApplyScenario(opt.Config, "jitter")
		require.NoError(t, err)
		_, err = Run(context.Background(), opt)
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(dir, "out.pcap"))
		require.NoError(t, err)
		return b
	}
	assert.Equal(t, read(), read())
}

func TestBuildWithoutSink(t *testing.T) {
	_, err := Build(RunOptions{
		Config: config.DefaultConfig(),
		Logger: logx.Discard(),
		Source: codec.NewSilence(0),
	})
	assert.ErrorIs(t, err, ErrNoSink)
}

func TestBuildUnknownCodec(t *testing.T) {
	opt, _ := options(t, 0, "global:codec", "opus")
	_, err := Build(opt)
	assert.ErrorIs(t, err, codec.ErrUnknownCodec)
}

func TestRunTracesThroughInterceptorChain(t *testing.T) {
	opt, dir := options(t, 8000, "network_emulator:loss_model", "independent",
		"network_emulator:loss_rate", "0.2")
	trace := filepath.Join(dir, "trace.txt")
	opt.Config.Set("interceptor:trace_filename", trace)
	var seqs []uint16
	opt.RTPWriter = interceptor.RTPWriterFunc(func(h *rtp.Header, payload []byte, _ interceptor.Attributes) (int, error) {
		seqs = append(seqs, h.SequenceNumber)
		return len(payload), nil
	})

	res, err := Run(context.Background(), opt)
	require.NoError(t, err)
	assert.Equal(t, res.DeliveredPkts, res.InterceptedPkts)
	assert.Len(t, seqs, int(res.DeliveredPkts))
	assert.Contains(t, res.Outputs, trace)

	data, err := os.ReadFile(trace)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, int(res.DeliveredPkts))
	assert.True(t, strings.HasPrefix(lines[0], "ssrc=12011a0c seq="), lines[0])
	assert.Contains(t, lines[0], "pt=0")
}

func TestBuildTraceAloneIsASink(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Set("interceptor:trace_filename", filepath.Join(dir, "trace.txt"))
	g, err := Build(RunOptions{Config: cfg, Logger: logx.Discard(), Source: codec.NewSilence(160)})
	require.NoError(t, err)
	require.NotNil(t, g.RTPWriter)
	assert.Len(t, g.Sinks, 1)
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
}

type fakeUploader struct{ paths []string }

func (f *fakeUploader) Upload(_ context.Context, path string) (string, error) {
	f.paths = append(f.paths, path)
	return "s3://bucket/" + filepath.Base(path), nil
}

func TestRunUploadsOutputs(t *testing.T) {
	opt, dir := options(t, 800)
	opt.Config.Set("rtpdump:filename", filepath.Join(dir, "out.rtpdump"))
	up := &fakeUploader{}
	opt.Uploader = up

	res, err := Run(context.Background(), opt)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "out.pcap"), filepath.Join(dir, "out.rtpdump")}, up.paths)
	assert.Equal(t, []string{"s3://bucket/out.pcap", "s3://bucket/out.rtpdump"}, res.Uploaded)
}

func TestApplyScenarioUnknown(t *testing.T) {
	_, err := ApplyScenario(config.DefaultConfig(), "nope")
	assert.Error(t, err)
	assert.Contains(t, Scenarios(), "clean")
}

func TestSummaryCSVAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "summary.csv")
	for i := 0; i < 2; i++ {
		w, err := NewSummaryCSVWriter(path)
		require.NoError(t, err)
		require.NoError(t, w.WriteRow(RowFromResult(RunResult{Scenario: "clean", Seed: uint64(i), ProducedPkts: 10, DeliveredPkts: 9})))
		require.NoError(t, w.Close())
	}
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, summaryHeader, rows[0])
	assert.Equal(t, "1", rows[2][1])
	assert.Equal(t, "0.100000", rows[1][10])
}
