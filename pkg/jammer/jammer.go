// Package jammer wires the menu, input accelerator and sweep worker into the
// foreground control loop.
package jammer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/norasector/nrfjam/pkg/engine"
	"github.com/norasector/nrfjam/pkg/input"
	"github.com/norasector/nrfjam/pkg/menu"
	"github.com/norasector/nrfjam/pkg/radio"
	"github.com/norasector/nrfjam/pkg/util"
)

const defaultJoinTimeout = 2 * time.Second

type Options struct {
	Engine      engine.Options
	Input       input.Config
	JoinTimeout time.Duration
	Outputs     []Output
}

type Jammer struct {
	radio    radio.Radio
	source   InputSource
	opts     Options
	engine   *engine.Engine
	worker   *engine.Worker
	menu     *menu.Menu
	accel    *input.Accelerator
	coverage *engine.Coverage
	alerts   []AlertSink
	writeAPI api.WriteAPI
	logger   zerolog.Logger

	// owned by the control loop
	field          string
	jammingStarted bool
	pendingAlert   string
	exit           bool

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

type JammerOption func(j *Jammer) error

func WithInfluxDB(writeAPI api.WriteAPI) JammerOption {
	return func(j *Jammer) error {
		j.writeAPI = writeAPI
		return nil
	}
}

func WithLogger(logger zerolog.Logger) JammerOption {
	return func(j *Jammer) error {
		j.logger = logger
		return nil
	}
}

// WithCoverage shares the per-channel write counters, e.g. with the viz server.
func WithCoverage(c *engine.Coverage) JammerOption {
	return func(j *Jammer) error {
		if c == nil {
			return errors.New("nil coverage")
		}
		j.coverage = c
		return nil
	}
}

func WithAlertSink(sink AlertSink) JammerOption {
	return func(j *Jammer) error {
		j.alerts = append(j.alerts, sink)
		return nil
	}
}

func NewJammer(r radio.Radio, source InputSource, options Options, opts ...JammerOption) (*Jammer, error) {
	if r == nil || source == nil {
		return nil, errors.New("must specify radio and input source")
	}

	j := &Jammer{
		radio:    r,
		source:   source,
		opts:     options,
		menu:     menu.New(),
		coverage: engine.NewCoverage(),
		writeAPI: &util.MockWriteAPI{}, // overwritten with option
		logger:   log.Logger,
	}

	for _, opt := range opts {
		if err := opt(j); err != nil {
			return nil, err
		}
	}

	if j.opts.JoinTimeout <= 0 {
		j.opts.JoinTimeout = defaultJoinTimeout
	}
	j.accel = input.NewAccelerator(j.opts.Input)
	j.engine = engine.NewEngine(r, j.opts.Engine,
		engine.WithLogger(j.logger),
		engine.WithInfluxDB(j.writeAPI),
		engine.WithCoverage(j.coverage))
	j.worker = engine.NewWorker(j.engine)
	j.field = j.menu.Field()

	return j, nil
}

// Start runs the control loop and every output until ctx ends or the user
// exits from the top-level menu, in which case it returns context.Canceled.
func (j *Jammer) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	j.mu.Lock()
	j.ctx, j.cancel = context.WithCancel(ctx)
	runCtx := j.ctx
	j.mu.Unlock()

	for _, output := range j.opts.Outputs {
		thisOutput := output
		eg.Go(func() error {
			return thisOutput.Start(runCtx)
		})
	}

	eg.Go(func() error {
		return j.control(runCtx)
	})

	j.logger.Info().
		Str("protocol", j.menu.Protocol().String()).
		Bool("radio_present", j.radio.Present()).
		Int("outputs", len(j.opts.Outputs)).
		Msg("Starting")

	if err := eg.Wait(); err != nil {
		return err
	}
	return nil
}

// Stop ends Start; a running session is stopped and joined first.
func (j *Jammer) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancel != nil {
		j.cancel()
	}
	return nil
}

func (j *Jammer) Worker() *engine.Worker {
	return j.worker
}

func (j *Jammer) Coverage() *engine.Coverage {
	return j.coverage
}
