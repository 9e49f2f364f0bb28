// Package sim provides a simulated nRF24-style peripheral for host-side runs
// and tests. It keeps the register state the engine touches and logs writes.
package sim

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/norasector/nrfjam/pkg/radio"
)

const (
	defaultChannelLogLimit = 4096
	defaultPower           = 0x06
	powerMask              = 0x07
)

type Mode int

const (
	ModeIdle Mode = iota
	ModeTx
)

func (m Mode) String() string {
	if m == ModeTx {
		return "tx"
	}
	return "idle"
}

type Option func(d *Driver)

// WithLatency makes every register write block for d, roughly the cost of an
// SPI transaction on real hardware.
func WithLatency(latency time.Duration) Option {
	return func(d *Driver) {
		d.latency = latency
	}
}

func WithPresent(present bool) Option {
	return func(d *Driver) {
		d.present.Store(present)
	}
}

// WithChannelLog keeps the first limit channel writes for inspection.
func WithChannelLog(limit int) Option {
	return func(d *Driver) {
		d.logLimit = limit
	}
}

// WithRecorder writes one byte per channel register write to w.
func WithRecorder(w io.Writer) Option {
	return func(d *Driver) {
		d.recorder = w
	}
}

// Driver is a radio.Radio backed by in-memory registers.
type Driver struct {
	present  atomic.Bool
	latency  time.Duration
	recorder io.Writer

	writes atomic.Uint64
	frames atomic.Uint64

	mu         sync.Mutex
	mode       Mode
	channel    uint8
	power      uint8
	carrier    bool
	addressing radio.Addressing
	logLimit   int
	channelLog []uint8
	txBuf      ringBuffer
	writeErr   error
	recordErr  error
}

func New(opts ...Option) *Driver {
	d := &Driver{
		power:    defaultPower,
		logLimit: defaultChannelLogLimit,
	}
	d.present.Store(true)

	for _, opt := range opts {
		opt(d)
	}

	d.channelLog = make([]uint8, 0, d.logLimit)
	return d
}

func (d *Driver) Present() bool {
	return d.present.Load()
}

// SetPresent simulates plugging or unplugging the module.
func (d *Driver) SetPresent(present bool) {
	d.present.Store(present)
}

// FailWrites makes subsequent channel writes return err; nil clears it.
func (d *Driver) FailWrites(err error) {
	d.mu.Lock()
	d.writeErr = err
	d.mu.Unlock()
}

func (d *Driver) Configure(addr radio.Addressing) error {
	if !d.Present() {
		return radio.ErrNotPresent
	}
	if addr.Channel > radio.MaxChannel {
		return radio.ErrInvalidChannel
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.addressing = radio.Addressing{
		AddressWidth: addr.AddressWidth,
		RxAddr:       append([]byte(nil), addr.RxAddr...),
		TxAddr:       append([]byte(nil), addr.TxAddr...),
		PayloadWidth: addr.PayloadWidth,
		Channel:      addr.Channel,
		AutoAck:      addr.AutoAck,
		Enable:       addr.Enable,
	}
	d.channel = addr.Channel
	return nil
}

func (d *Driver) SetTxMode() error {
	d.mu.Lock()
	d.mode = ModeTx
	d.mu.Unlock()
	return nil
}

func (d *Driver) SetIdle() error {
	d.mu.Lock()
	d.mode = ModeIdle
	d.mu.Unlock()
	return nil
}

func (d *Driver) SetChannel(ch uint8) error {
	if ch > radio.MaxChannel {
		return radio.ErrInvalidChannel
	}
	d.sleep()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeErr != nil {
		return d.writeErr
	}

	d.channel = ch
	d.writes.Add(1)
	if len(d.channelLog) < d.logLimit {
		d.channelLog = append(d.channelLog, ch)
	}
	if d.recorder != nil && d.recordErr == nil {
		if _, err := d.recorder.Write([]byte{ch}); err != nil {
			d.recordErr = err
			return err
		}
	}
	return nil
}

func (d *Driver) ReadPower() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.power, nil
}

func (d *Driver) WritePower(v uint8) error {
	d.mu.Lock()
	d.power = v
	d.mu.Unlock()
	return nil
}

func (d *Driver) StartCarrier(ch uint8, power uint8) error {
	if ch > radio.MaxChannel {
		return radio.ErrInvalidChannel
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.carrier = true
	d.channel = ch
	d.power = (d.power &^ powerMask) | (power & powerMask)
	return nil
}

func (d *Driver) StopCarrier() error {
	d.mu.Lock()
	d.carrier = false
	d.mu.Unlock()
	return nil
}

func (d *Driver) Send(frame []byte, timeout time.Duration) error {
	d.sleep()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode != ModeTx {
		return errNotTx
	}
	d.txBuf.push(append([]byte(nil), frame...))
	d.frames.Add(1)
	return nil
}

func (d *Driver) sleep() {
	if d.latency > 0 {
		time.Sleep(d.latency)
	}
}

// ChannelWrites is the number of successful channel register writes.
func (d *Driver) ChannelWrites() uint64 {
	return d.writes.Load()
}

func (d *Driver) FramesSent() uint64 {
	return d.frames.Load()
}

// ChannelLog returns a copy of the logged channel writes.
func (d *Driver) ChannelLog() []uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint8(nil), d.channelLog...)
}

// TxLog returns the most recent frames sent.
func (d *Driver) TxLog() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txBuf.snapshot()
}

// State is a copy of the simulated register state.
type State struct {
	Mode       Mode
	Channel    uint8
	Power      uint8
	Carrier    bool
	Addressing radio.Addressing
}

func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return State{
		Mode:       d.mode,
		Channel:    d.channel,
		Power:      d.power,
		Carrier:    d.carrier,
		Addressing: d.addressing,
	}
}

var _ radio.Radio = (*Driver)(nil)
