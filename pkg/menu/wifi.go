package menu

import (
	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/input"
)

type WifiState int

const (
	WifiClosed WifiState = iota
	WifiModeSelect
	WifiChannelSelect
)

func (s WifiState) String() string {
	switch s {
	case WifiModeSelect:
		return "mode_select"
	case WifiChannelSelect:
		return "channel_select"
	default:
		return "closed"
	}
}

// WifiFlow picks between sweeping the whole band and a single channel.
type WifiFlow struct {
	state WifiState
	cfg   channels.WifiConfig
}

func NewWifiFlow() *WifiFlow {
	return &WifiFlow{}
}

func (f *WifiFlow) Config() channels.WifiConfig {
	return f.cfg
}

func (f *WifiFlow) Current() WifiState {
	return f.state
}

func (f *WifiFlow) State() string {
	return f.state.String()
}

func (f *WifiFlow) Open() bool {
	return f.state != WifiClosed
}

func (f *WifiFlow) Editing() bool {
	return f.state == WifiChannelSelect
}

func (f *WifiFlow) Reset() {
	f.state = WifiClosed
}

func (f *WifiFlow) Confirm() Outcome {
	switch f.state {
	case WifiClosed:
		f.state = WifiModeSelect
	case WifiModeSelect:
		if f.cfg.Mode == channels.WifiFullBand {
			return OutcomeLaunch
		}
		f.state = WifiChannelSelect
	case WifiChannelSelect:
		return OutcomeLaunch
	}
	return OutcomeNone
}

func (f *WifiFlow) Cancel() Outcome {
	switch f.state {
	case WifiChannelSelect:
		f.state = WifiModeSelect
	case WifiModeSelect:
		f.state = WifiClosed
	default:
		return OutcomeExit
	}
	return OutcomeNone
}

func (f *WifiFlow) Direction(k input.Key, step int) Outcome {
	switch f.state {
	case WifiModeSelect:
		f.cfg.Mode = f.cfg.Mode.Toggle()
	case WifiChannelSelect:
		if k == input.KeyUp || k == input.KeyRight {
			f.cfg.Channel = clampAdd(f.cfg.Channel, step, channels.WifiChannels-1)
		} else {
			f.cfg.Channel = clampAdd(f.cfg.Channel, -step, channels.WifiChannels-1)
		}
	default:
		return OutcomeIgnored
	}
	return OutcomeNone
}
