package sim

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
)

var summaryHeader = []string{
	"scenario",
	"seed",
	"duration_ms",
	"produced_pkts",
	"produced_bytes",
	"dropped_pkts",
	"substituted_pkts",
	"delivered_pkts",
	"delivered_bytes",
	"reordered_pkts",
	"loss_ratio",
	"mean_delay_ms",
	"max_delay_ms",
}

type SummaryRow struct {
	Scenario string
	Seed     uint64

	DurationMs int64

	ProducedPkts    int64
	ProducedBytes   int64
	DroppedPkts     int64
	SubstitutedPkts int64
	DeliveredPkts   int64
	DeliveredBytes  int64
	ReorderedPkts   int64

	LossRatio   float64
	MeanDelayMs float64
	MaxDelayMs  float64
}

func RowFromResult(r RunResult) SummaryRow {
	return SummaryRow{
		Scenario:        r.Scenario,
		Seed:            r.Seed,
		DurationMs:      r.Duration.Milliseconds(),
		ProducedPkts:    r.ProducedPkts,
		ProducedBytes:   r.ProducedBytes,
		DroppedPkts:     r.DroppedPkts,
		SubstitutedPkts: r.SubstitutedPkts,
		DeliveredPkts:   r.DeliveredPkts,
		DeliveredBytes:  r.DeliveredBytes,
		ReorderedPkts:   r.ReorderedPkts,
		LossRatio:       r.LossRatio(),
		MeanDelayMs:     float64(r.MeanDelay.Microseconds()) / 1000,
		MaxDelayMs:      float64(r.MaxDelay.Microseconds()) / 1000,
	}
}

// SummaryCSVWriter appends one row per run. The header is written only
// when the file is new or empty.
type SummaryCSVWriter struct {
	f *os.File
	w *csv.Writer
}

func NewSummaryCSVWriter(path string) (*SummaryCSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(summaryHeader); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return &SummaryCSVWriter{f: f, w: w}, nil
}

func (s *SummaryCSVWriter) WriteRow(r SummaryRow) error {
	row := []string{
		r.Scenario,
		strconv.FormatUint(r.Seed, 10),
		strconv.FormatInt(r.DurationMs, 10),

		strconv.FormatInt(r.ProducedPkts, 10),
		strconv.FormatInt(r.ProducedBytes, 10),
		strconv.FormatInt(r.DroppedPkts, 10),
		strconv.FormatInt(r.SubstitutedPkts, 10),
		strconv.FormatInt(r.DeliveredPkts, 10),
		strconv.FormatInt(r.DeliveredBytes, 10),
		strconv.FormatInt(r.ReorderedPkts, 10),

		ff(r.LossRatio),
		ff(r.MeanDelayMs),
		ff(r.MaxDelayMs),
	}
	return s.w.Write(row)
}

func (s *SummaryCSVWriter) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.f.Close()
		return err
	}
	return s.f.Close()
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
