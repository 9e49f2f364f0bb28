package output

import (
	"context"
	"fmt"
	"io"

	"github.com/norasector/nrfjam/pkg/jammer"
)

const snapshotBufferLength int = 8

// SimpleOutput writes one line per visible state change, for headless runs.
// Snapshots that differ only in live counters are skipped.
type SimpleOutput struct {
	dest     io.Writer
	recvChan chan jammer.Snapshot
	last     string
}

func NewSimpleOutput(dest io.Writer) *SimpleOutput {
	return &SimpleOutput{
		dest:     dest,
		recvChan: make(chan jammer.Snapshot, snapshotBufferLength),
	}
}

func (s *SimpleOutput) Receive() chan<- jammer.Snapshot {
	return s.recvChan
}

func (s *SimpleOutput) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-s.recvChan:
			line := FormatSnapshot(snap)
			if line == s.last {
				continue
			}
			s.last = line
			if _, err := fmt.Fprintln(s.dest, line); err != nil {
				return err
			}
		}
	}
}

// FormatSnapshot renders the user-visible part of a snapshot on one line.
func FormatSnapshot(snap jammer.Snapshot) string {
	line := fmt.Sprintf("[%s] %s", snap.Protocol, snap.FlowState)
	switch snap.FlowState {
	case "set_start", "set_stop", "error":
		line += fmt.Sprintf(" start=%d stop=%d mode=%s", snap.Range.Start, snap.Range.Stop, snap.Range.Mode)
	case "mode_select":
		line += " mode=" + snap.WiFi.Mode.String()
	case "channel_select":
		line += fmt.Sprintf(" channel=%d", snap.WiFi.Channel+1)
	}
	if snap.Running {
		line += fmt.Sprintf(" jamming session=%d", snap.Session)
	}
	if snap.Alert != "" {
		line += " alert=" + snap.Alert
	}
	return line
}
