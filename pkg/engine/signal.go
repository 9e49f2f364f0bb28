package engine

import (
	"sync/atomic"

	"github.com/norasector/nrfjam/pkg/channels"
)

// StopSignal is the cancellation flag polled by the sweep loop before every
// channel write. The controller side only ever sets it; the engine only
// reads it. It never goes back to false; each session gets a fresh one.
type StopSignal struct {
	flag atomic.Bool
}

func (s *StopSignal) Request() {
	s.flag.Store(true)
}

func (s *StopSignal) Requested() bool {
	return s.flag.Load()
}

// Coverage counts channel register writes per channel value.
type Coverage struct {
	counts [channels.MaxChannel + 1]atomic.Uint64
}

func NewCoverage() *Coverage {
	return &Coverage{}
}

func (c *Coverage) add(ch uint8) {
	if int(ch) < len(c.counts) {
		c.counts[ch].Add(1)
	}
}

func (c *Coverage) Reset() {
	for i := range c.counts {
		c.counts[i].Store(0)
	}
}

// Snapshot returns the count for every channel 0..MaxChannel.
func (c *Coverage) Snapshot() []uint64 {
	ret := make([]uint64, len(c.counts))
	for i := range c.counts {
		ret[i] = c.counts[i].Load()
	}
	return ret
}

type counters struct {
	writes   atomic.Uint64
	frames   atomic.Uint64
	passes   atomic.Uint64
	failures atomic.Uint64
}
