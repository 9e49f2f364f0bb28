package output

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/norasector/nrfjam/pkg/jammer"
	"github.com/norasector/nrfjam/pkg/jammer/config"
	"github.com/norasector/nrfjam/pkg/util"
)

const receiveChannels = 8

// SnapshotUDPOutput sends every snapshot as a length-prefixed protobuf Struct
// to each destination.
type SnapshotUDPOutput struct {
	dests    []config.OutputDestination
	recvChan chan jammer.Snapshot
	metrics  api.WriteAPI
}

func NewSnapshotUDPOutput(dests []config.OutputDestination, metrics api.WriteAPI) *SnapshotUDPOutput {
	return &SnapshotUDPOutput{
		dests:    dests,
		recvChan: make(chan jammer.Snapshot, receiveChannels),
		metrics:  metrics,
	}
}

func (s *SnapshotUDPOutput) Receive() chan<- jammer.Snapshot {
	return s.recvChan
}

// SnapshotStruct converts a snapshot into a protobuf Struct.
func SnapshotStruct(snap jammer.Snapshot) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"time":       snap.Time.UnixMicro(),
		"protocol":   snap.Protocol.String(),
		"flow_state": snap.FlowState,
		"range": map[string]interface{}{
			"start": int(snap.Range.Start),
			"stop":  int(snap.Range.Stop),
			"mode":  snap.Range.Mode.String(),
		},
		"wifi": map[string]interface{}{
			"mode":    snap.WiFi.Mode.String(),
			"channel": int(snap.WiFi.Channel),
		},
		"worker":          snap.Worker.String(),
		"session":         snap.Session,
		"running":         snap.Running,
		"jamming_started": snap.JammingStarted,
		"alert":           snap.Alert,
		"stats": map[string]interface{}{
			"writes":   snap.Stats.Writes,
			"frames":   snap.Stats.Frames,
			"passes":   snap.Stats.Passes,
			"failures": snap.Stats.Failures,
			"duration": snap.Stats.Duration.Microseconds(),
		},
	})
}

// EncodeSnapshot frames a snapshot as a little-endian uint16 length followed
// by the marshaled Struct.
func EncodeSnapshot(snap jammer.Snapshot) ([]byte, error) {
	pb, err := SnapshotStruct(snap)
	if err != nil {
		return nil, err
	}
	encoded, err := proto.Marshal(pb)
	if err != nil {
		return nil, err
	}
	if len(encoded) > 0xFFFF {
		return nil, fmt.Errorf("snapshot too large: %d bytes", len(encoded))
	}

	var msgBuf bytes.Buffer
	if err := binary.Write(&msgBuf, binary.LittleEndian, uint16(len(encoded))); err != nil {
		return nil, err
	}
	msgBuf.Write(encoded)
	return msgBuf.Bytes(), nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(msg []byte) (*structpb.Struct, error) {
	if len(msg) < 2 {
		return nil, fmt.Errorf("short message: %d bytes", len(msg))
	}
	size := int(binary.LittleEndian.Uint16(msg))
	if len(msg)-2 < size {
		return nil, fmt.Errorf("truncated message: want %d bytes, have %d", size, len(msg)-2)
	}
	var pb structpb.Struct
	if err := proto.Unmarshal(msg[2:2+size], &pb); err != nil {
		return nil, err
	}
	return &pb, nil
}

func (s *SnapshotUDPOutput) Start(ctx context.Context) error {
	destAddrs := make([]*net.UDPAddr, 0, len(s.dests))
	for _, dest := range s.dests {
		ips, err := net.LookupIP(dest.Host)
		if err != nil {
			return err
		}
		if len(ips) == 0 {
			return fmt.Errorf("no IPs returned for %s", dest.Host)
		}

		destAddr := &net.UDPAddr{IP: ips[0], Port: dest.Port}
		destAddrs = append(destAddrs, destAddr)
		log.Info().IPAddr("dest_ip", destAddr.IP).Int("port", dest.Port).Msg("stream output starting")
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-s.recvChan:
			msg, err := EncodeSnapshot(snap)
			if err != nil {
				log.Warn().Err(err).Msg("error encoding snapshot")
				continue
			}

			success := true
			var bytesWritten int
			for _, destAddr := range destAddrs {
				bytesWritten, err = conn.WriteToUDP(msg, destAddr)
				if err != nil {
					log.Error().Err(err).Msg("error writing")
					success = false
				}
			}

			go s.metrics.WritePoint(influxdb2.NewPoint("snapshot.sent",
				map[string]string{
					"protocol": snap.Protocol.String(),
				},
				map[string]interface{}{
					"bytes_written": bytesWritten,
					"sent":          util.BoolInt(success),
					"dropped":       util.BoolInt(!success),
				}, time.Now()))
		}
	}
}
