package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrNotWAV = errors.New("codec: not a PCM WAV stream")

const (
	wavHeaderSize = 44
	wavFormatPCM  = 1
)

// WAVReader streams the samples of a 16-bit PCM WAV file.
type WAVReader struct {
	dec *wav.Decoder
	buf *audio.IntBuffer
}

// OpenWAV reads the RIFF/WAVE header and positions r at the first sample.
// Only 16-bit PCM is accepted.
func OpenWAV(r io.ReadSeeker) (*WAVReader, Format, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, Format{}, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, Format{}, fmt.Errorf("%w: format tag %d", ErrNotWAV, dec.WavAudioFormat)
	}
	f := Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		Bits:       int(dec.BitDepth),
	}
	if f.Bits != 16 {
		return nil, Format{}, fmt.Errorf("%w: %d bit samples", ErrNotWAV, f.Bits)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, Format{}, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	return &WAVReader{
		dec: dec,
		buf: &audio.IntBuffer{Format: dec.Format(), SourceBitDepth: f.Bits},
	}, f, nil
}

func (w *WAVReader) Read(samples []int16) (int, error) {
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	n, err := w.dec.PCMBuffer(w.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i, s := range w.buf.Data[:n] {
		samples[i] = int16(s)
	}
	return n, nil
}

// WriteWAV writes samples as a 16-bit mono PCM WAV file. The header sizes
// are patched on close, so w must be seekable.
func WriteWAV(w io.WriteSeeker, rate int, samples []int16) error {
	enc := wav.NewEncoder(w, rate, 16, 1, wavFormatPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
