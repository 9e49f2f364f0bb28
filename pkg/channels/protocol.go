package channels

import (
	"errors"
	"fmt"
	"strings"
)

// MaxChannel is the highest value the peripheral's channel register accepts.
const MaxChannel = 125

var (
	ErrUnknownProtocol = errors.New("unknown protocol")
	ErrInvalidRange    = errors.New("invalid range: stop must be greater than start")
)

// Protocol selects a channel plan and transmission style. The order of the
// constants is the menu order.
type Protocol int

const (
	ProtocolBluetooth Protocol = iota
	ProtocolDrone
	ProtocolWiFi
	ProtocolBLE
	ProtocolZigbee
	ProtocolCustom

	protocolCount
)

var protocolNames = [protocolCount]string{
	ProtocolBluetooth: "bluetooth",
	ProtocolDrone:     "drone",
	ProtocolWiFi:      "wifi",
	ProtocolBLE:       "ble",
	ProtocolZigbee:    "zigbee",
	ProtocolCustom:    "custom",
}

// Protocols returns every protocol in menu order.
func Protocols() []Protocol {
	ret := make([]Protocol, 0, protocolCount)
	for p := Protocol(0); p < protocolCount; p++ {
		ret = append(ret, p)
	}
	return ret
}

func (p Protocol) Valid() bool {
	return p >= 0 && p < protocolCount
}

func (p Protocol) String() string {
	if !p.Valid() {
		return fmt.Sprintf("protocol(%d)", int(p))
	}
	return protocolNames[p]
}

// Next and Prev rotate cyclically through the menu.
func (p Protocol) Next() Protocol {
	return (p + 1) % protocolCount
}

func (p Protocol) Prev() Protocol {
	if p <= 0 {
		return protocolCount - 1
	}
	return p - 1
}

func (p Protocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func ParseProtocol(s string) (Protocol, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, n := range protocolNames {
		if n == name {
			return Protocol(p), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
}

// Style is how the engine occupies each visited channel.
type Style int

const (
	// StyleCarrier keeps an unmodulated carrier up and only retunes it.
	StyleCarrier Style = iota
	// StylePacket transmits a minimal no-ack frame on every visited channel.
	StylePacket

	styleCount
)

func (s Style) String() string {
	switch s {
	case StyleCarrier:
		return "carrier"
	case StylePacket:
		return "packet"
	default:
		return fmt.Sprintf("style(%d)", int(s))
	}
}

func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Toggle flips between the two styles.
func (s Style) Toggle() Style {
	return (s + 1) % styleCount
}

// WifiMode selects between sweeping the whole band or one channel's neighbourhood.
type WifiMode int

const (
	WifiFullBand WifiMode = iota
	WifiSingleChannel

	wifiModeCount
)

// WifiChannels is the number of logical 2.4GHz WiFi channels covered.
const WifiChannels = 13

func (m WifiMode) String() string {
	switch m {
	case WifiFullBand:
		return "full_band"
	case WifiSingleChannel:
		return "single_channel"
	default:
		return fmt.Sprintf("wifi_mode(%d)", int(m))
	}
}

func (m WifiMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m WifiMode) Toggle() WifiMode {
	return (m + 1) % wifiModeCount
}

// RangeConfig is the user supplied sweep for ProtocolCustom.
type RangeConfig struct {
	Start uint8 `json:"start"`
	Stop  uint8 `json:"stop"`
	Mode  Style `json:"mode"`
}

func (r RangeConfig) Validate() error {
	if r.Stop <= r.Start {
		return fmt.Errorf("%w (start=%d stop=%d)", ErrInvalidRange, r.Start, r.Stop)
	}
	return nil
}

type WifiConfig struct {
	Mode    WifiMode `json:"mode"`
	Channel uint8    `json:"channel"` // 0..12
}

// Params carries the per-protocol configuration a sequence is derived from.
type Params struct {
	Range RangeConfig
	WiFi  WifiConfig
}

// ChannelFrequencyMHz returns the carrier frequency of a channel register value.
func ChannelFrequencyMHz(ch uint8) int {
	return 2400 + int(ch)
}
