// Package codec holds the audio codecs and PCM sources the producer uses.
package codec

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownCodec = errors.New("codec: unknown codec")

// Encoder turns fixed-size PCM frames into payload bytes.
type Encoder interface {
	Name() string
	PayloadType() uint8
	SampleRate() int
	// InputFrameSize is the number of 16-bit samples per frame.
	InputFrameSize() int
	// OutputBufferSize bounds the encoded size of one frame.
	OutputBufferSize() int
	Encode(pcm []int16) ([]byte, error)
}

type Decoder interface {
	Name() string
	PayloadType() uint8
	SampleRate() int
	Decode(payload []byte) ([]int16, error)
}

// Codec is an Encoder and Decoder pair.
type Codec interface {
	Encoder
	Decoder
}

// FrameDuration is the playout time of one encoder frame.
func FrameDuration(e Encoder) time.Duration {
	if e.SampleRate() <= 0 {
		return 0
	}
	return time.Duration(e.InputFrameSize()) * time.Second / time.Duration(e.SampleRate())
}

var registry = []Codec{
	G711U{},
	G711A{},
}

// Lookup finds a codec by name, case insensitively.
func Lookup(name string) (Codec, error) {
	n := strings.ToLower(name)
	for _, c := range registry {
		if c.Name() == n {
			return c, nil
		}
		for _, alias := range aliases[c.Name()] {
			if alias == n {
				return c, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// ForPayloadType finds a codec by its static RTP payload type.
func ForPayloadType(pt uint8) (Codec, error) {
	for _, c := range registry {
		if c.PayloadType() == pt {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: payload type %d", ErrUnknownCodec, pt)
}

// Names lists the registered codecs.
func Names() []string {
	out := make([]string, len(registry))
	for i, c := range registry {
		out[i] = c.Name()
	}
	return out
}

var aliases = map[string][]string{
	"pcmu": {"g711u", "ulaw"},
	"pcma": {"g711a", "alaw"},
}
