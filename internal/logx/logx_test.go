package logx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopedLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn")
	require.NoError(t, err)

	log := NewFactory(l).NewLogger("pcap")
	log.Infof("hidden %d", 1)
	log.Warnf("flush lagging by %d records", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "flush lagging by 3 records")
	assert.Contains(t, out, "scope=pcap")
}

func TestBadLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "chatty")
	assert.Error(t, err)
}
