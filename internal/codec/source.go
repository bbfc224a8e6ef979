package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
)

// Source yields 16-bit mono PCM. Read fills up to len(samples) and returns
// io.EOF once no samples remain.
type Source interface {
	Read(samples []int16) (int, error)
}

// PCMReader reads raw signed 16-bit little-endian samples.
type PCMReader struct {
	r   io.Reader
	buf []byte
	eof bool
}

func NewPCMReader(r io.Reader) *PCMReader {
	return &PCMReader{r: r}
}

func (p *PCMReader) Read(samples []int16) (int, error) {
	if p.eof {
		return 0, io.EOF
	}
	if cap(p.buf) < 2*len(samples) {
		p.buf = make([]byte, 2*len(samples))
	}
	buf := p.buf[:2*len(samples)]
	n, err := io.ReadFull(p.r, buf)
	switch {
	case errors.Is(err, io.EOF):
		p.eof = true
		return 0, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		p.eof = true
	case err != nil:
		return 0, err
	}
	k := n / 2
	for i := 0; i < k; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[2*i:]))
	}
	if k == 0 {
		return 0, io.EOF
	}
	return k, nil
}

// WhiteNoise is a deterministic noise source of fixed length.
type WhiteNoise struct {
	r         *rand.Rand
	remaining int
	amplitude int
}

func NewWhiteNoise(seed uint64, samples int) *WhiteNoise {
	return &WhiteNoise{
		r:         rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d)),
		remaining: samples,
		amplitude: 28000,
	}
}

func (w *WhiteNoise) Read(samples []int16) (int, error) {
	if w.remaining <= 0 {
		return 0, io.EOF
	}
	n := min(len(samples), w.remaining)
	for i := 0; i < n; i++ {
		samples[i] = int16(w.r.IntN(2*w.amplitude) - w.amplitude)
	}
	w.remaining -= n
	return n, nil
}

// Silence yields zero samples.
type Silence struct {
	remaining int
}

func NewSilence(samples int) *Silence { return &Silence{remaining: samples} }

func (s *Silence) Read(samples []int16) (int, error) {
	if s.remaining <= 0 {
		return 0, io.EOF
	}
	n := min(len(samples), s.remaining)
	clear(samples[:n])
	s.remaining -= n
	return n, nil
}

// Format describes a PCM stream.
type Format struct {
	SampleRate int
	Channels   int
	Bits       int
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d bit", f.SampleRate, f.Channels, f.Bits)
}
