package codec

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestG711KnownValues(t *testing.T) {
	u, err := G711U{}.Encode([]int16{0, 32767, -32768})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x80, 0x00}, u)
	pcm, err := G711U{}.Decode([]byte{0xFF})
	require.NoError(t, err)
	assert.Equal(t, []int16{0}, pcm)

	a, err := G711A{}.Encode([]int16{0})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xD5}, a)
	pcm, err = G711A{}.Decode([]byte{0xD5})
	require.NoError(t, err)
	assert.Equal(t, []int16{8}, pcm)
}

func TestG711RoundTrip(t *testing.T) {
	for _, c := range []Codec{G711U{}, G711A{}} {
		t.Run(c.Name(), func(t *testing.T) {
			for s := -32768; s <= 32767; s += 7 {
				in := int16(s)
				enc, err := c.Encode([]int16{in})
				require.NoError(t, err)
				dec, err := c.Decode(enc)
				require.NoError(t, err)

				diff := int(dec[0]) - s
				if diff < 0 {
					diff = -diff
				}
				// logarithmic companding: error grows with magnitude
				limit := 16 + abs(s)/16
				require.LessOrEqual(t, diff, limit, "sample %d decoded to %d", s, dec[0])
			}
		})
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestLookup(t *testing.T) {
	c, err := Lookup("G711U")
	require.NoError(t, err)
	assert.Equal(t, uint8(0), c.PayloadType())

	c, err = ForPayloadType(8)
	require.NoError(t, err)
	assert.Equal(t, "pcma", c.Name())

	_, err = Lookup("speex")
	assert.ErrorIs(t, err, ErrUnknownCodec)
	assert.Equal(t, 20*time.Millisecond, FrameDuration(G711A{}))
	assert.Equal(t, []string{"pcmu", "pcma"}, Names())
}

func TestPCMReaderPartialTail(t *testing.T) {
	var raw bytes.Buffer
	require.NoError(t, binary.Write(&raw, binary.LittleEndian, []int16{1, -2, 3, 4, 5}))

	r := NewPCMReader(&raw)
	buf := make([]int16, 3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, -2, 3}, buf[:n])

	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []int16{4, 5}, buf[:n])

	_, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768}
	path := filepath.Join(t.TempDir(), "round.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteWAV(f, 8000, samples))
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, raw, wavHeaderSize+2*len(samples))

	r, format, err := OpenWAV(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, Format{SampleRate: 8000, Channels: 1, Bits: 16}, format)

	got := make([]int16, 10)
	n, err := r.Read(got)
	require.NoError(t, err)
	assert.Equal(t, samples, got[:n])

	_, err = r.Read(got)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenWAVRejectsGarbage(t *testing.T) {
	_, _, err := OpenWAV(bytes.NewReader([]byte("RIFX0000WAVEfmt ")))
	assert.ErrorIs(t, err, ErrNotWAV)
}

func TestWhiteNoiseDeterministic(t *testing.T) {
	a, b := NewWhiteNoise(5, 400), NewWhiteNoise(5, 400)
	bufA, bufB := make([]int16, 160), make([]int16, 160)
	total := 0
	for {
		na, errA := a.Read(bufA)
		nb, _ := b.Read(bufB)
		if errA == io.EOF {
			break
		}
		require.Equal(t, bufA[:na], bufB[:nb])
		total += na
	}
	assert.Equal(t, 400, total)
}
