package pipeline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lars-sto/rtp-capture-simulation/internal/logx"
	"github.com/lars-sto/rtp-capture-simulation/internal/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tap struct {
	Base
	ret    error
	events []Event
	seqs   []uint16
}

func newTap(name string, ret error) *tap {
	return &tap{Base: NewBase(name, KindLog, logx.Discard()), ret: ret}
}

func (p *tap) Notify(ev Event, v packet.View) error {
	p.events = append(p.events, ev)
	if ev == NewPacket {
		p.seqs = append(p.seqs, v.SequenceNumber())
	}
	if err := p.NotifyObservers(ev, v); err != nil {
		return err
	}
	return p.ret
}

func TestNotifyObserversOrderAndStatuses(t *testing.T) {
	boom := errors.New("disk full")
	root := newTap("root", nil)
	a := newTap("a", Warn(errors.New("odd packet")))
	b := newTap("b", boom)
	c := newTap("c", nil)
	root.AddObserver(a)
	root.AddObserver(b)
	root.AddObserver(c)

	pkt := packet.New(0, 7, false, 0, time.Unix(0, 0))
	err := root.NotifyObservers(NewPacket, pkt.View())

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusFatal, StatusOf(err))
	// the broadcast completes despite the fatal observer
	assert.Equal(t, []uint16{7}, c.seqs)
	assert.Equal(t, []uint16{7}, a.seqs)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{Warn(errors.New("x")), StatusWarn},
		{fmt.Errorf("wrapped: %w", Warn(errors.New("x"))), StatusWarn},
		{errors.New("x"), StatusFatal},
		{ErrStop, StatusStop},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), "%v", tt.err)
	}
	assert.Nil(t, Warn(nil))
}

func TestLifecycle(t *testing.T) {
	b := NewBase("f", KindSort, logx.Discard())
	assert.ErrorIs(t, b.Running(), ErrNotStarted)
	require.NoError(t, b.Begin())
	assert.ErrorIs(t, b.Begin(), ErrAlreadyStarted)
	require.NoError(t, b.Running())
	assert.True(t, b.Finish())
	assert.False(t, b.Finish())
	assert.ErrorIs(t, b.Running(), ErrClosed)

	never := NewBase("g", KindSort, logx.Discard())
	assert.False(t, never.Finish())
	assert.Equal(t, Closed, never.State())
}

func TestValidateAndWalk(t *testing.T) {
	root := newTap("root", nil)
	mid := newTap("mid", nil)
	leaf := newTap("leaf", nil)
	root.AddObserver(mid)
	root.AddObserver(leaf)
	mid.AddObserver(leaf)
	require.NoError(t, Validate(root))

	var names []string
	Walk(root, func(f Filter) { names = append(names, f.Name()) })
	assert.Equal(t, []string{"root", "mid", "leaf"}, names)

	leaf.AddObserver(root)
	assert.ErrorIs(t, Validate(root), ErrCycle)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "pcap", KindPcapSink.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
	assert.Equal(t, "NEW_PACKET", NewPacket.String())
}
