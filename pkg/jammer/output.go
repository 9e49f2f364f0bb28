package jammer

import (
	"context"
	"time"

	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/engine"
	"github.com/norasector/nrfjam/pkg/input"
)

// InputSource delivers key events to the control loop. Closing the channel
// ends the application.
type InputSource interface {
	Events() <-chan input.Event
}

// Output presents controller state.
type Output interface {
	// Start receives a context and should run in a loop, terminating upon ctx closing or on any errors.
	Start(ctx context.Context) error
	// Receive returns a channel that receives a snapshot on every state change.
	Receive() chan<- Snapshot
}

// AlertSink is notified of user-facing errors. Alert must not block.
type AlertSink interface {
	Alert(reason string)
}

// Snapshot is a copy of everything a presenter may render.
type Snapshot struct {
	Time      time.Time            `json:"time"`
	Protocol  channels.Protocol    `json:"protocol"`
	FlowState string               `json:"flow_state"`
	Range     channels.RangeConfig `json:"range"`
	WiFi      channels.WifiConfig  `json:"wifi"`
	Worker    engine.State         `json:"worker"`
	Session   uint64               `json:"session,omitempty"`
	// JammingStarted is set while a user range session runs.
	JammingStarted bool         `json:"jamming_started"`
	Running        bool         `json:"running"`
	Stats          engine.Stats `json:"stats"`
	Alert          string       `json:"alert,omitempty"`
}
