package engine

import (
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/radio"
	"github.com/norasector/nrfjam/pkg/util"
)

var (
	ErrEmptySequence = errors.New("empty channel sequence")
	ErrAborted       = errors.New("session aborted on radio failure")
)

const (
	addressWidth = 2
	payloadWidth = 2
	powerMask    = 0xF8

	failureLogSample = 1000
)

// pseudoAddress is the broadcast-like address used for packet sweeps.
var pseudoAddress = []byte{0xFF, 0xFF}

// Stats summarises a session.
type Stats struct {
	Protocol channels.Protocol `json:"protocol"`
	Style    channels.Style    `json:"style"`
	Writes   uint64            `json:"writes"`
	Frames   uint64            `json:"frames"`
	Passes   uint64            `json:"passes"`
	Failures uint64            `json:"failures"`
	Started  time.Time         `json:"started"`
	Duration time.Duration     `json:"duration"`
}

// Engine sweeps a radio over a channel sequence until told to stop.
type Engine struct {
	radio    radio.Radio
	opts     Options
	logger   zerolog.Logger
	writeAPI api.WriteAPI
	coverage *Coverage
}

func NewEngine(r radio.Radio, options Options, opts ...Option) *Engine {
	e := &Engine{
		radio:    r,
		opts:     options,
		logger:   log.Logger,
		writeAPI: &util.MockWriteAPI{}, // overwritten with option
		coverage: NewCoverage(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Engine) Coverage() *Coverage {
	return e.coverage
}

// Run blocks sweeping seq until stop is requested or, under FailureAbort, a
// radio write fails. The radio is left idle on return.
func (e *Engine) Run(seq channels.Sequence, stop *StopSignal) (Stats, error) {
	var ctr counters
	return e.run(seq, stop, &ctr)
}

func (e *Engine) run(seq channels.Sequence, stop *StopSignal, ctr *counters) (stats Stats, err error) {
	if seq.Len() == 0 {
		return Stats{Protocol: seq.Protocol, Style: seq.Style}, ErrEmptySequence
	}

	start := time.Now()
	logger := e.logger.With().
		Str("protocol", seq.Protocol.String()).
		Str("style", seq.Style.String()).
		Logger()
	failLog := logger.Sample(&zerolog.BasicSampler{N: failureLogSample})

	defer func() {
		stats = Stats{
			Protocol: seq.Protocol,
			Style:    seq.Style,
			Writes:   ctr.writes.Load(),
			Frames:   ctr.frames.Load(),
			Passes:   ctr.passes.Load(),
			Failures: ctr.failures.Load(),
			Started:  start,
			Duration: time.Since(start),
		}
		e.writeSessionPoint(stats, err)

		logger.Info().
			Uint64("writes", stats.Writes).
			Uint64("frames", stats.Frames).
			Uint64("passes", stats.Passes).
			Uint64("failures", stats.Failures).
			Dur("duration", stats.Duration).
			AnErr("error", err).
			Msg("sweep finished")
	}()

	frame, err := e.prepare(seq)
	// Leave the peripheral quiet whatever happened during setup or the sweep.
	defer e.shutdown(seq.Style, &err)
	if err != nil {
		return stats, err
	}

	logger.Info().
		Int("channels", seq.Len()).
		Int("groups", len(seq.Groups)).
		Msg("sweep started")

	fail := func(op string, ch uint8, opErr error) error {
		n := ctr.failures.Add(1)
		failLog.Warn().Err(opErr).Str("op", op).Uint8("channel", ch).Uint64("failures", n).Msg("radio write failed")
		if e.opts.FailurePolicy == FailureAbort {
			return fmt.Errorf("%w: %s channel %d: %w", ErrAborted, op, ch, opErr)
		}
		return nil
	}

	for !stop.Requested() {
		for _, group := range seq.Groups {
			for _, ch := range group {
				if stop.Requested() {
					return stats, nil
				}

				if werr := e.radio.SetChannel(ch); werr != nil {
					if err := fail("set_channel", ch, werr); err != nil {
						return stats, err
					}
					continue
				}
				ctr.writes.Add(1)
				e.coverage.add(ch)

				if frame == nil {
					continue
				}
				if serr := e.radio.Send(frame, e.opts.SendTimeout); serr != nil {
					if err := fail("send", ch, serr); err != nil {
						return stats, err
					}
					continue
				}
				ctr.frames.Add(1)
			}
		}
		ctr.passes.Add(1)
	}

	return stats, nil
}

// prepare puts the radio in the mode the style needs and returns the frame to
// transmit per channel (nil for carrier sweeps).
func (e *Engine) prepare(seq channels.Sequence) ([]byte, error) {
	switch seq.Style {
	case channels.StyleCarrier:
		if err := e.radio.SetTxMode(); err != nil {
			return nil, fmt.Errorf("set tx mode: %w", err)
		}
		if err := e.radio.StartCarrier(e.opts.CarrierChannel, e.opts.CarrierPower); err != nil {
			return nil, fmt.Errorf("start carrier: %w", err)
		}
		return nil, nil

	case channels.StylePacket:
		if err := e.radio.Configure(radio.Addressing{
			AddressWidth: addressWidth,
			RxAddr:       pseudoAddress,
			TxAddr:       pseudoAddress,
			PayloadWidth: payloadWidth,
			Channel:      seq.First(),
			AutoAck:      true,
			Enable:       true,
		}); err != nil {
			return nil, fmt.Errorf("configure addressing: %w", err)
		}

		setup, err := e.radio.ReadPower()
		if err != nil {
			return nil, fmt.Errorf("read power register: %w", err)
		}
		if err := e.radio.WritePower((setup & powerMask) | (e.opts.PacketPower &^ powerMask)); err != nil {
			return nil, fmt.Errorf("write power register: %w", err)
		}

		frame := make([]byte, 0, 1+len(pseudoAddress))
		frame = append(frame, radio.CmdTxPayloadNoAck)
		frame = append(frame, pseudoAddress...)

		if err := e.radio.SetTxMode(); err != nil {
			return nil, fmt.Errorf("set tx mode: %w", err)
		}
		return frame, nil

	default:
		return nil, fmt.Errorf("unknown transmission style %s", seq.Style)
	}
}

func (e *Engine) shutdown(style channels.Style, errp *error) {
	if style == channels.StyleCarrier {
		if err := e.radio.StopCarrier(); err != nil && *errp == nil {
			*errp = fmt.Errorf("stop carrier: %w", err)
		}
	}
	if err := e.radio.SetIdle(); err != nil && *errp == nil {
		*errp = fmt.Errorf("set idle: %w", err)
	}
}

func (e *Engine) writeSessionPoint(stats Stats, err error) {
	go e.writeAPI.WritePoint(influxdb2.NewPoint("jam.session.end",
		map[string]string{
			"protocol": stats.Protocol.String(),
			"style":    stats.Style.String(),
		},
		map[string]interface{}{
			"writes":   int64(stats.Writes),
			"frames":   int64(stats.Frames),
			"passes":   int64(stats.Passes),
			"failures": int64(stats.Failures),
			"duration": stats.Duration.Microseconds(),
			"aborted":  util.BoolInt(err != nil),
		}, time.Now()))
}
