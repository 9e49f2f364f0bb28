package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
)

// FailurePolicy decides what a failed channel write or frame send does to
// the running session.
type FailurePolicy int

const (
	// FailureIgnore counts the failure and keeps sweeping.
	FailureIgnore FailurePolicy = iota
	// FailureAbort ends the session with ErrAborted.
	FailureAbort
)

func (f FailurePolicy) String() string {
	switch f {
	case FailureIgnore:
		return "ignore"
	case FailureAbort:
		return "abort"
	default:
		return fmt.Sprintf("failure_policy(%d)", int(f))
	}
}

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ignore":
		return FailureIgnore, nil
	case "abort":
		return FailureAbort, nil
	default:
		return 0, fmt.Errorf("unknown failure policy %q", s)
	}
}

// Options parameterises the sweep. The two transmission variants share a
// single engine and differ only by these values.
type Options struct {
	CarrierPower   uint8
	CarrierChannel uint8
	PacketPower    uint8
	SendTimeout    time.Duration
	FailurePolicy  FailurePolicy
}

func DefaultOptions() Options {
	return Options{
		CarrierPower:   7,
		CarrierChannel: 0,
		PacketPower:    7,
		SendTimeout:    100 * time.Millisecond,
		FailurePolicy:  FailureIgnore,
	}
}

type Option func(e *Engine)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithInfluxDB(writeAPI api.WriteAPI) Option {
	return func(e *Engine) {
		e.writeAPI = writeAPI
	}
}

// WithCoverage shares a coverage counter with another reader, e.g. the viz
// server.
func WithCoverage(c *Coverage) Option {
	return func(e *Engine) {
		e.coverage = c
	}
}
