package menu

import (
	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/input"
)

type RangeState int

const (
	RangeIdle RangeState = iota
	RangeSetStart
	RangeSetStop
	RangeError
)

func (s RangeState) String() string {
	switch s {
	case RangeSetStart:
		return "set_start"
	case RangeSetStop:
		return "set_stop"
	case RangeError:
		return "error"
	default:
		return "idle"
	}
}

// RangeFlow collects a user channel range: start, then stop, then launch.
// Left and right toggle between carrier and packet transmission.
type RangeFlow struct {
	state RangeState
	cfg   channels.RangeConfig
}

func NewRangeFlow() *RangeFlow {
	return &RangeFlow{}
}

func (f *RangeFlow) Config() channels.RangeConfig {
	return f.cfg
}

func (f *RangeFlow) Current() RangeState {
	return f.state
}

func (f *RangeFlow) State() string {
	return f.state.String()
}

func (f *RangeFlow) Open() bool {
	return f.state != RangeIdle
}

func (f *RangeFlow) Editing() bool {
	return f.state == RangeSetStart || f.state == RangeSetStop
}

// Reset closes the flow; the entered values are kept.
func (f *RangeFlow) Reset() {
	f.state = RangeIdle
}

func (f *RangeFlow) Confirm() Outcome {
	switch f.state {
	case RangeIdle:
		f.cfg.Start, f.cfg.Stop = 0, 0
		f.state = RangeSetStart
	case RangeSetStart:
		f.cfg.Stop = f.cfg.Start + 1
		if f.cfg.Stop > channels.MaxChannel {
			f.cfg.Stop = channels.MaxChannel
		}
		f.state = RangeSetStop
	case RangeSetStop:
		if err := f.cfg.Validate(); err != nil {
			f.state = RangeError
			return OutcomeInvalid
		}
		return OutcomeLaunch
	case RangeError:
		f.state = RangeSetStop
	}
	return OutcomeNone
}

func (f *RangeFlow) Cancel() Outcome {
	switch f.state {
	case RangeSetStop:
		f.state = RangeSetStart
	case RangeSetStart:
		f.state = RangeIdle
	case RangeError:
		f.state = RangeSetStop
	default:
		return OutcomeExit
	}
	return OutcomeNone
}

func (f *RangeFlow) Direction(k input.Key, step int) Outcome {
	var field *uint8
	switch f.state {
	case RangeSetStart:
		field = &f.cfg.Start
	case RangeSetStop:
		field = &f.cfg.Stop
	default:
		return OutcomeIgnored
	}

	switch k {
	case input.KeyUp:
		*field = clampAdd(*field, step, channels.MaxChannel)
	case input.KeyDown:
		*field = clampAdd(*field, -step, channels.MaxChannel)
	case input.KeyLeft, input.KeyRight:
		f.cfg.Mode = f.cfg.Mode.Toggle()
	default:
		return OutcomeIgnored
	}
	return OutcomeNone
}

// clampAdd adds delta to v keeping the result within [0, max].
func clampAdd(v uint8, delta int, max int) uint8 {
	n := int(v) + delta
	if n < 0 {
		n = 0
	}
	if n > max {
		n = max
	}
	return uint8(n)
}
