package output

import (
	"bytes"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/engine"
	"github.com/norasector/nrfjam/pkg/jammer"
	"github.com/norasector/nrfjam/pkg/jammer/config"
	"github.com/norasector/nrfjam/pkg/util"
)

func runningSnapshot() jammer.Snapshot {
	return jammer.Snapshot{
		Time:           time.Now(),
		Protocol:       channels.ProtocolCustom,
		FlowState:      "set_stop",
		Range:          channels.RangeConfig{Start: 10, Stop: 20, Mode: channels.StylePacket},
		Worker:         engine.StateRunning,
		Session:        3,
		Running:        true,
		JammingStarted: true,
		Stats:          engine.Stats{Writes: 1234, Passes: 12},
	}
}

func TestEncodeSnapshot(t *testing.T) {
	msg, err := EncodeSnapshot(runningSnapshot())
	require.NoError(t, err)

	pb, err := DecodeSnapshot(msg)
	require.NoError(t, err)
	m := pb.AsMap()

	assert.Equal(t, "custom", m["protocol"])
	assert.Equal(t, "running", m["worker"])
	assert.Equal(t, true, m["jamming_started"])
	assert.Equal(t, 3.0, m["session"])
	assert.Equal(t, 1234.0, m["stats"].(map[string]interface{})["writes"])
	assert.Equal(t, "packet", m["range"].(map[string]interface{})["mode"])

	_, err = DecodeSnapshot(msg[:len(msg)-1])
	assert.Error(t, err)
	_, err = DecodeSnapshot([]byte{1})
	assert.Error(t, err)
}

func TestSnapshotUDPOutput(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer listener.Close()

	port := listener.LocalAddr().(*net.UDPAddr).Port
	out := NewSnapshotUDPOutput([]config.OutputDestination{{Host: "127.0.0.1", Port: port}}, &util.MockWriteAPI{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- out.Start(ctx) }()

	out.Receive() <- runningSnapshot()

	require.NoError(t, listener.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 4096)
	n, _, err := listener.ReadFromUDP(buf)
	require.NoError(t, err)

	pb, err := DecodeSnapshot(buf[:n])
	require.NoError(t, err)
	assert.Equal(t, "custom", pb.AsMap()["protocol"])

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestSimpleOutputSkipsCounterOnlyChanges(t *testing.T) {
	var dest syncBuffer
	out := NewSimpleOutput(&dest)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go out.Start(ctx)

	snap := runningSnapshot()
	out.Receive() <- snap
	snap.Stats.Writes++
	out.Receive() <- snap
	snap.Running = false
	snap.Alert = "session aborted"
	out.Receive() <- snap

	require.Eventually(t, func() bool {
		return strings.Count(dest.String(), "\n") == 2
	}, 5*time.Second, time.Millisecond)

	lines := strings.Split(strings.TrimSpace(dest.String()), "\n")
	assert.Equal(t, "[custom] set_stop start=10 stop=20 mode=packet jamming session=3", lines[0])
	assert.Equal(t, "[custom] set_stop start=10 stop=20 mode=packet alert=session aborted", lines[1])
}

func TestFormatWifi(t *testing.T) {
	snap := jammer.Snapshot{
		Protocol:  channels.ProtocolWiFi,
		FlowState: "channel_select",
		WiFi:      channels.WifiConfig{Mode: channels.WifiSingleChannel, Channel: 5},
	}
	assert.Equal(t, "[wifi] channel_select channel=6", FormatSnapshot(snap))
}
