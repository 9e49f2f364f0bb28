// Package channels holds the per-protocol channel plans swept by the engine.
package channels

import "fmt"

var (
	bluetoothChannels = []uint8{32, 34, 46, 48, 50, 52, 0, 1, 2, 4, 6, 8, 22, 24, 26, 28, 30, 74, 76, 78, 80}
	bleChannels       = []uint8{2, 26, 80}
)

const (
	droneChannels = 125

	zigbeeFirst    = 11
	zigbeeLast     = 26
	zigbeeSubWidth = 6

	wifiSpacing = 5
	wifiWidth   = 23
)

// Sequence is an ordered hop plan. A pass visits every group in order; the
// engine restarts from the first group after each pass.
type Sequence struct {
	Protocol Protocol
	Style    Style
	Groups   [][]uint8
}

// Len is the number of channel writes in one pass.
func (s Sequence) Len() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g)
	}
	return n
}

// Flatten returns one pass as a flat slice.
func (s Sequence) Flatten() []uint8 {
	ret := make([]uint8, 0, s.Len())
	for _, g := range s.Groups {
		ret = append(ret, g...)
	}
	return ret
}

// First returns the first channel of a pass, or 0 for an empty sequence.
func (s Sequence) First() uint8 {
	for _, g := range s.Groups {
		if len(g) > 0 {
			return g[0]
		}
	}
	return 0
}

// SequenceFor derives the hop plan of a protocol. It does not validate
// params beyond what the formulas need; callers reject bad ranges first.
func SequenceFor(p Protocol, params Params) (Sequence, error) {
	seq := Sequence{Protocol: p}

	switch p {
	case ProtocolBluetooth:
		seq.Style = StyleCarrier
		seq.Groups = [][]uint8{clone(bluetoothChannels)}
	case ProtocolDrone:
		seq.Style = StyleCarrier
		seq.Groups = [][]uint8{span(0, droneChannels)}
	case ProtocolBLE:
		seq.Style = StylePacket
		seq.Groups = [][]uint8{clone(bleChannels)}
	case ProtocolZigbee:
		seq.Style = StylePacket
		for logical := zigbeeFirst; logical <= zigbeeLast; logical++ {
			base := 5 + 5*(logical-zigbeeFirst)
			seq.Groups = append(seq.Groups, span(base, base+zigbeeSubWidth))
		}
	case ProtocolWiFi:
		seq.Style = StylePacket
		if params.WiFi.Mode == WifiSingleChannel {
			seq.Groups = [][]uint8{wifiGroup(int(params.WiFi.Channel))}
			break
		}
		for k := 0; k < WifiChannels; k++ {
			seq.Groups = append(seq.Groups, wifiGroup(k))
		}
	case ProtocolCustom:
		seq.Style = params.Range.Mode
		seq.Groups = [][]uint8{span(int(params.Range.Start), int(params.Range.Stop))}
	default:
		return Sequence{}, fmt.Errorf("%w: %s", ErrUnknownProtocol, p)
	}

	return seq, nil
}

// wifiGroup covers a logical WiFi channel plus its adjacent-channel bleed:
// (k*5)+1 through (k*5)+23 inclusive, so the full band spans 1..83.
func wifiGroup(k int) []uint8 {
	low := k*wifiSpacing + 1
	return span(low, low+wifiWidth)
}

// span returns [low, high); empty when high <= low.
func span(low, high int) []uint8 {
	if high <= low {
		return []uint8{}
	}
	ret := make([]uint8, 0, high-low)
	for ch := low; ch < high; ch++ {
		ret = append(ret, uint8(ch))
	}
	return ret
}

func clone(in []uint8) []uint8 {
	ret := make([]uint8, len(in))
	copy(ret, in)
	return ret
}
