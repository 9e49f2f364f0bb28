// Package menu holds the protocol menu and the per-protocol configuration
// flows that run before a session is launched.
package menu

import (
	"fmt"

	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/input"
)

// Outcome tells the controller what a key did.
type Outcome int

const (
	// OutcomeNone means the state changed and nothing else is needed.
	OutcomeNone Outcome = iota
	// OutcomeIgnored is an invalid transition; nothing changed.
	OutcomeIgnored
	// OutcomeLaunch asks the controller to start a session with Params.
	OutcomeLaunch
	// OutcomeInvalid is a rejected configuration; the caller raises an alert.
	OutcomeInvalid
	// OutcomeExit asks the controller to leave the application.
	OutcomeExit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeLaunch:
		return "launch"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeExit:
		return "exit"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Flow is the configuration dialog of one protocol.
type Flow interface {
	// Open reports whether the flow has left its initial state. Directions
	// only rotate the protocol menu while the flow is closed.
	Open() bool
	Confirm() Outcome
	Cancel() Outcome
	Direction(k input.Key, step int) Outcome
	// Editing reports whether directions currently change a number, the
	// only case where a held key repeats.
	Editing() bool
	Reset()
	// State names the current step for display.
	State() string
}

// Menu owns the selected protocol and one flow per protocol. It is used from
// the control loop only.
type Menu struct {
	protocol channels.Protocol
	flows    map[channels.Protocol]Flow
	rng      *RangeFlow
	wifi     *WifiFlow
}

func New() *Menu {
	m := &Menu{
		protocol: channels.ProtocolBluetooth,
		flows:    make(map[channels.Protocol]Flow),
		rng:      NewRangeFlow(),
		wifi:     NewWifiFlow(),
	}
	for _, p := range channels.Protocols() {
		switch p {
		case channels.ProtocolCustom:
			m.flows[p] = m.rng
		case channels.ProtocolWiFi:
			m.flows[p] = m.wifi
		default:
			m.flows[p] = &SimpleFlow{}
		}
	}
	return m
}

func (m *Menu) Protocol() channels.Protocol {
	return m.protocol
}

// Flow returns the flow of the selected protocol.
func (m *Menu) Flow() Flow {
	return m.flows[m.protocol]
}

func (m *Menu) Range() *RangeFlow {
	return m.rng
}

func (m *Menu) Wifi() *WifiFlow {
	return m.wifi
}

// Field identifies what directional keys currently edit. It changes whenever
// the protocol or the flow step changes.
func (m *Menu) Field() string {
	return m.protocol.String() + "/" + m.Flow().State()
}

// Editing reports whether held keys should repeat on the current flow.
func (m *Menu) Editing() bool {
	return m.Flow().Editing()
}

// Params collects the user-supplied parameters of every flow.
func (m *Menu) Params() channels.Params {
	return channels.Params{
		Range: m.rng.Config(),
		WiFi:  m.wifi.Config(),
	}
}

// Sequence builds the channel plan for the selected protocol.
func (m *Menu) Sequence() (channels.Sequence, error) {
	return channels.SequenceFor(m.protocol, m.Params())
}

// Handle applies one key with the step computed by the accelerator.
func (m *Menu) Handle(k input.Key, step int) Outcome {
	flow := m.Flow()
	switch {
	case k == input.KeyOK:
		return flow.Confirm()
	case k == input.KeyBack:
		return flow.Cancel()
	case !k.Directional():
		return OutcomeIgnored
	case flow.Open():
		return flow.Direction(k, step)
	}

	if k == input.KeyUp || k == input.KeyRight {
		m.protocol = m.protocol.Next()
	} else {
		m.protocol = m.protocol.Prev()
	}
	for _, f := range m.flows {
		f.Reset()
	}
	return OutcomeNone
}

// SimpleFlow launches on confirm and exits on cancel.
type SimpleFlow struct{}

func (*SimpleFlow) Open() bool                       { return false }
func (*SimpleFlow) Confirm() Outcome                 { return OutcomeLaunch }
func (*SimpleFlow) Cancel() Outcome                  { return OutcomeExit }
func (*SimpleFlow) Direction(input.Key, int) Outcome { return OutcomeIgnored }
func (*SimpleFlow) Editing() bool                    { return false }
func (*SimpleFlow) Reset()                           {}
func (*SimpleFlow) State() string                    { return "ready" }
