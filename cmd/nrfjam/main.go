package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	tea "github.com/charmbracelet/bubbletea"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/norasector/nrfjam/pkg/engine"
	"github.com/norasector/nrfjam/pkg/input"
	"github.com/norasector/nrfjam/pkg/jammer"
	"github.com/norasector/nrfjam/pkg/jammer/config"
	"github.com/norasector/nrfjam/pkg/output"
	"github.com/norasector/nrfjam/pkg/radio/sim"
	"github.com/norasector/nrfjam/pkg/tui"
	"github.com/norasector/nrfjam/pkg/util"
	"github.com/norasector/nrfjam/pkg/viz"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.String("config", "nrfjam.yaml", "YAML config file")

	flag.Parse()
	if configFile == nil {
		flag.Usage()
		os.Exit(1)
	}

	opts, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error loading config")
	}

	// The terminal belongs to the TUI; logs go to a file instead.
	var logOut io.Writer = os.Stderr
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatal().Err(err).Msg("error opening log file")
		}
		defer f.Close()
		logOut = f
	} else if opts.TUI {
		logOut = io.Discard
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: logOut, NoColor: logOut != os.Stderr}).Level(opts.Level())

	simOpts := []sim.Option{
		sim.WithPresent(*opts.Radio.Present),
		sim.WithLatency(opts.Radio.WriteLatency),
	}
	if opts.Radio.RecordLocation != "" {
		f, err := os.Create(opts.Radio.RecordLocation)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create channel recording file")
		}
		defer f.Close()
		simOpts = append(simOpts, sim.WithRecorder(f))
	}
	log.Info().Str("driver", opts.Radio.Driver).Msg("initializing radio...")
	radio := sim.New(simOpts...)

	var writeAPI api.WriteAPI = &util.MockWriteAPI{}
	if opts.InfluxDB.Host != "" {
		client := influxdb2.NewClient(opts.InfluxDB.Host, "")
		defer client.Close()
		writeAPI = client.WriteAPI(opts.InfluxDB.Organization, opts.InfluxDB.Bucket)
	}

	engineOpts, err := opts.EngineOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid engine options")
	}

	plotOpts, err := viz.ThemeOptions(opts.VizServer.Theme)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid viz server theme")
	}

	coverage := engine.NewCoverage()
	outputs := []jammer.Output{
		viz.NewServer(opts.VizServer.Port, opts.VizServer.UpdateInterval, coverage, plotOpts...),
	}
	if len(opts.OutputDestinations) > 0 {
		outputs = append(outputs, output.NewSnapshotUDPOutput(opts.OutputDestinations, writeAPI))
	}

	jammerOpts := []jammer.JammerOption{
		jammer.WithInfluxDB(writeAPI),
		jammer.WithCoverage(coverage),
		jammer.WithLogger(log.Logger),
	}

	eg, ctx := errgroup.WithContext(context.Background())

	var source jammer.InputSource
	switch {
	case opts.Script != "":
		f, err := os.Open(opts.Script)
		if err != nil {
			log.Fatal().Err(err).Msg("error opening input script")
		}
		steps, err := input.ParseScript(f)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("error parsing input script")
		}
		script := input.NewScriptSource(steps)
		eg.Go(func() error {
			return script.Run(ctx)
		})
		source = script
		outputs = append(outputs, output.NewSimpleOutput(os.Stdout))
	case opts.TUI:
		ui := tui.New(tea.WithAltScreen())
		source = ui
		outputs = append(outputs, ui)
		jammerOpts = append(jammerOpts, jammer.WithAlertSink(ui))
	default:
		log.Fatal().Msg("either tui or script must be configured")
	}

	jam, err := jammer.NewJammer(radio, source,
		jammer.Options{
			Engine:      engineOpts,
			Input:       opts.InputConfig(),
			JoinTimeout: opts.JoinTimeout,
			Outputs:     outputs,
		}, jammerOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create jammer")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg.Go(func() error {
		select {
		case <-sigChan:
		case <-ctx.Done():
		}

		return jam.Stop()
	})

	// Leaving the top-level menu ends Start with context.Canceled, which also
	// releases the signal watcher.
	eg.Go(func() error {
		return jam.Start(ctx)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("exited program")
	}
}
