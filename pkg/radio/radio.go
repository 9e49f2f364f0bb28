package radio

import (
	"errors"
	"time"
)

var (
	ErrNotPresent     = errors.New("radio peripheral not present")
	ErrInvalidChannel = errors.New("invalid channel (valid range: 0-125)")
)

// MaxChannel mirrors the channel register's upper bound.
const MaxChannel = 125

// CmdTxPayloadNoAck is the SPI command that queues a payload without
// requesting a link-layer acknowledgement.
const CmdTxPayloadNoAck = 0xB0

// Addressing configures the enhanced shockburst address/payload layout.
type Addressing struct {
	AddressWidth int
	RxAddr       []byte
	TxAddr       []byte
	PayloadWidth int
	Channel      uint8
	AutoAck      bool
	Enable       bool
}

// Radio is the register-level capability surface of the transceiver. The
// hardware driver lives outside this module; pkg/radio/sim provides a
// simulated peripheral.
//
// A Radio is not safe for concurrent use. Callers hand ownership over
// explicitly (controller before start and after join, worker while running).
type Radio interface {
	Configure(addr Addressing) error
	SetTxMode() error
	SetIdle() error
	SetChannel(ch uint8) error
	ReadPower() (uint8, error)
	WritePower(v uint8) error
	StartCarrier(ch uint8, power uint8) error
	StopCarrier() error
	Send(frame []byte, timeout time.Duration) error
	Present() bool
}
