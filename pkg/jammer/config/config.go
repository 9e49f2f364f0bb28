package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/engine"
	"github.com/norasector/nrfjam/pkg/input"
)

const (
	DriverSim = "sim"

	defaultJoinTimeout    = 2 * time.Second
	defaultUpdateInterval = 500 * time.Millisecond
	defaultVizPort        = 8080

	ThemeDark  = "dark"
	ThemeLight = "light"
)

type Config struct {
	LogLevel           string              `yaml:"log_level"`
	LogFile            string              `yaml:"log_file"`
	Radio              Radio               `yaml:"radio"`
	Engine             Engine              `yaml:"engine"`
	Input              Input               `yaml:"input"`
	JoinTimeout        time.Duration       `yaml:"join_timeout"`
	OutputDestinations []OutputDestination `yaml:"output_destinations"`
	TUI                bool                `yaml:"tui"`
	Script             string              `yaml:"script"`
	VizServer          struct {
		Port           int           `yaml:"port"`
		UpdateInterval time.Duration `yaml:"update_interval"`
		Theme          string        `yaml:"theme"`
	} `yaml:"viz_server"`
	InfluxDB struct {
		Host         string `yaml:"host"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	} `yaml:"influxdb"`
}

type Radio struct {
	Driver         string        `yaml:"driver"`
	Present        *bool         `yaml:"present"`
	WriteLatency   time.Duration `yaml:"write_latency"`
	RecordLocation string        `yaml:"record_location"`
}

// Engine mirrors engine.Options. Powers are pointers so an explicit 0 is kept.
type Engine struct {
	CarrierPower   *uint8        `yaml:"carrier_power"`
	CarrierChannel uint8         `yaml:"carrier_channel"`
	PacketPower    *uint8        `yaml:"packet_power"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
	FailurePolicy  string        `yaml:"failure_policy"`
}

type Input struct {
	Acceleration *bool         `yaml:"acceleration"`
	PressWindow  time.Duration `yaml:"press_window"`
	HoldTick     time.Duration `yaml:"hold_tick"`
	HoldTicks    int           `yaml:"hold_ticks"`
}

type OutputDestination struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Load reads and decodes a YAML config file and fills defaults.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(contents)
}

func Parse(contents []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(contents, &c); err != nil {
		return Config{}, fmt.Errorf("unmarshaling yaml: %w", err)
	}
	c.Defaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Defaults fills every zero value with its default.
func (c *Config) Defaults() {
	if c.LogLevel == "" {
		c.LogLevel = zerolog.InfoLevel.String()
	}
	if c.Radio.Driver == "" {
		c.Radio.Driver = DriverSim
	}
	if c.Radio.Present == nil {
		present := true
		c.Radio.Present = &present
	}

	def := engine.DefaultOptions()
	if c.Engine.CarrierPower == nil {
		p := def.CarrierPower
		c.Engine.CarrierPower = &p
	}
	if c.Engine.PacketPower == nil {
		p := def.PacketPower
		c.Engine.PacketPower = &p
	}
	if c.Engine.SendTimeout <= 0 {
		c.Engine.SendTimeout = def.SendTimeout
	}
	if c.Engine.FailurePolicy == "" {
		c.Engine.FailurePolicy = def.FailurePolicy.String()
	}

	inDef := input.DefaultConfig()
	if c.Input.Acceleration == nil {
		enabled := inDef.Enabled
		c.Input.Acceleration = &enabled
	}
	if c.Input.PressWindow <= 0 {
		c.Input.PressWindow = inDef.PressWindow
	}
	if c.Input.HoldTick <= 0 {
		c.Input.HoldTick = inDef.HoldTick
	}
	if c.Input.HoldTicks <= 0 {
		c.Input.HoldTicks = inDef.HoldThreshold
	}

	if c.JoinTimeout <= 0 {
		c.JoinTimeout = defaultJoinTimeout
	}
	if c.VizServer.UpdateInterval <= 0 {
		c.VizServer.UpdateInterval = defaultUpdateInterval
	}
	if c.VizServer.Port == 0 {
		c.VizServer.Port = defaultVizPort
	}
	if c.VizServer.Theme == "" {
		c.VizServer.Theme = ThemeDark
	}
}

func (c *Config) Validate() error {
	if c.Radio.Driver != DriverSim {
		return fmt.Errorf("unsupported radio driver %q", c.Radio.Driver)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Engine.CarrierChannel > channels.MaxChannel {
		return fmt.Errorf("carrier_channel %d out of range", c.Engine.CarrierChannel)
	}
	if _, err := engine.ParseFailurePolicy(c.Engine.FailurePolicy); err != nil {
		return err
	}
	if c.VizServer.Theme != ThemeDark && c.VizServer.Theme != ThemeLight {
		return fmt.Errorf("viz_server theme %q must be %s or %s", c.VizServer.Theme, ThemeDark, ThemeLight)
	}
	for _, dest := range c.OutputDestinations {
		if dest.Host == "" || dest.Port <= 0 {
			return fmt.Errorf("invalid output destination %s:%d", dest.Host, dest.Port)
		}
	}
	return nil
}

func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// EngineOptions converts the engine section; call after Defaults.
func (c *Config) EngineOptions() (engine.Options, error) {
	policy, err := engine.ParseFailurePolicy(c.Engine.FailurePolicy)
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		CarrierPower:   *c.Engine.CarrierPower,
		CarrierChannel: c.Engine.CarrierChannel,
		PacketPower:    *c.Engine.PacketPower,
		SendTimeout:    c.Engine.SendTimeout,
		FailurePolicy:  policy,
	}, nil
}

// InputConfig converts the input section; call after Defaults.
func (c *Config) InputConfig() input.Config {
	cfg := input.DefaultConfig()
	cfg.Enabled = *c.Input.Acceleration
	cfg.PressWindow = c.Input.PressWindow
	cfg.HoldTick = c.Input.HoldTick
	cfg.HoldThreshold = c.Input.HoldTicks
	return cfg
}
