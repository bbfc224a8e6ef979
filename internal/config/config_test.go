package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "127.0.0.2", c.String("global:dst_ip", ""))
	port, err := c.Int("global:src_port", 0)
	require.NoError(t, err)
	assert.Equal(t, 8001, port)
	ssrc, err := c.Int("global:ssrc", 0)
	require.NoError(t, err)
	assert.Equal(t, 0x12011A0C, ssrc)

	// Defaults is never modified through a Config
	c.Set("global:src_port", "1")
	assert.Equal(t, "8001", Defaults["global:src_port"])
}

func TestRead(t *testing.T) {
	in := `
; leading comment
rtp_in_frame = 3

[network_emulator]
# loss settings
loss_model = markov
loss_0_1 = 0.05
loss_1_1=0.5

[Sort]
enabled = no
`
	c := DefaultConfig()
	require.NoError(t, c.Read(strings.NewReader(in)))

	n, err := c.Int("rtp_in_frame", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "markov", c.String("network_emulator:loss_model", "none"))

	p, err := c.Float("network_emulator:loss_1_1", 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-12)

	on, err := c.Bool("sort:enabled", true)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestReadInvalidLine(t *testing.T) {
	c := DefaultConfig()
	err := c.Read(strings.NewReader("[global]\nno equals sign\n"))
	assert.ErrorIs(t, err, ErrInvalidLine)
}

func TestTypedLookups(t *testing.T) {
	tests := []struct {
		name  string
		value string
		check func(t *testing.T, c *Config)
	}{
		{"bad int", "x1", func(t *testing.T, c *Config) {
			v, err := c.Int("k", 7)
			assert.ErrorIs(t, err, ErrInvalidValue)
			assert.Equal(t, 7, v)
		}},
		{"bad bool", "maybe", func(t *testing.T, c *Config) {
			_, err := c.Bool("k", false)
			assert.ErrorIs(t, err, ErrInvalidValue)
		}},
		{"unix time", "10.5", func(t *testing.T, c *Config) {
			v, err := c.Time("k", time.Time{})
			require.NoError(t, err)
			assert.Equal(t, time.Unix(10, 500_000_000), v)
		}},
		{"rfc3339", "2009-02-13T23:31:30Z", func(t *testing.T, c *Config) {
			v, err := c.Time("k", time.Time{})
			require.NoError(t, err)
			assert.Equal(t, int64(1234567890), v.Unix())
		}},
		{"empty falls back", "", func(t *testing.T, c *Config) {
			v, err := c.Float("k", 1.5)
			require.NoError(t, err)
			assert.Equal(t, 1.5, v)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			c.Set("k", tt.value)
			tt.check(t, c)
		})
	}
}

func TestLoadConfigAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.conf")
	require.NoError(t, os.WriteFile(path, []byte("[pcap]\nflush_every = 0\n"), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	n, err := c.Int("pcap:flush_every", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, c.SetFlag("network_emulator:random_seed = 42"))
	assert.Equal(t, "42", c.String("network_emulator:random_seed", ""))
	assert.Error(t, c.SetFlag("noassignment"))

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.conf"))
	assert.Error(t, err)
}
