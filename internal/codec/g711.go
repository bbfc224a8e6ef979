package codec

import (
	"math"

	"github.com/zaf/g711"
)

const (
	g711Rate      = 8000
	g711FrameSize = 160 // 20ms
)

// G711U is ITU-T G.711 mu-law, static payload type 0.
type G711U struct{}

func (G711U) Name() string          { return "pcmu" }
func (G711U) PayloadType() uint8    { return 0 }
func (G711U) SampleRate() int       { return g711Rate }
func (G711U) InputFrameSize() int   { return g711FrameSize }
func (G711U) OutputBufferSize() int { return g711FrameSize }

func (G711U) Encode(pcm []int16) ([]byte, error) {
	out := make([]byte, len(pcm))
	for i, s := range pcm {
		out[i] = g711.EncodeUlawFrame(clampSample(s))
	}
	return out, nil
}

func (G711U) Decode(payload []byte) ([]int16, error) {
	out := make([]int16, len(payload))
	for i, b := range payload {
		out[i] = g711.DecodeUlawFrame(b)
	}
	return out, nil
}

// G711A is ITU-T G.711 A-law, static payload type 8.
type G711A struct{}

func (G711A) Name() string          { return "pcma" }
func (G711A) PayloadType() uint8    { return 8 }
func (G711A) SampleRate() int       { return g711Rate }
func (G711A) InputFrameSize() int   { return g711FrameSize }
func (G711A) OutputBufferSize() int { return g711FrameSize }

func (G711A) Encode(pcm []int16) ([]byte, error) {
	out := make([]byte, len(pcm))
	for i, s := range pcm {
		out[i] = g711.EncodeAlawFrame(clampSample(s))
	}
	return out, nil
}

func (G711A) Decode(payload []byte) ([]int16, error) {
	out := make([]int16, len(payload))
	for i, b := range payload {
		out[i] = g711.DecodeAlawFrame(b)
	}
	return out, nil
}

// clampSample keeps negation inside int16.
func clampSample(s int16) int16 {
	if s == math.MinInt16 {
		return -math.MaxInt16
	}
	return s
}
