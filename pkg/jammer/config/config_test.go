package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norasector/nrfjam/pkg/engine"
)

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, DriverSim, c.Radio.Driver)
	assert.True(t, *c.Radio.Present)
	assert.Equal(t, zerolog.InfoLevel, c.Level())
	assert.Equal(t, 2*time.Second, c.JoinTimeout)

	opts, err := c.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultOptions(), opts)

	in := c.InputConfig()
	assert.True(t, in.Enabled)
	assert.Equal(t, 200*time.Millisecond, in.PressWindow)
	assert.Equal(t, 100*time.Millisecond, in.HoldTick)
	assert.Equal(t, 3, in.HoldThreshold)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nrfjam.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
radio:
  present: false
  write_latency: 1ms
engine:
  carrier_power: 0
  carrier_channel: 45
  failure_policy: abort
  send_timeout: 20ms
input:
  acceleration: false
join_timeout: 5s
viz_server:
  port: 9090
  update_interval: 250ms
  theme: light
output_destinations:
  - host: localhost
    port: 9999
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, c.Level())
	assert.False(t, *c.Radio.Present)
	assert.Equal(t, time.Millisecond, c.Radio.WriteLatency)
	assert.Equal(t, 5*time.Second, c.JoinTimeout)
	assert.Equal(t, 9090, c.VizServer.Port)
	assert.Equal(t, 250*time.Millisecond, c.VizServer.UpdateInterval)
	assert.Equal(t, ThemeLight, c.VizServer.Theme)
	require.Len(t, c.OutputDestinations, 1)
	assert.False(t, c.InputConfig().Enabled)

	opts, err := c.EngineOptions()
	require.NoError(t, err)
	assert.Equal(t, uint8(0), opts.CarrierPower)
	assert.Equal(t, uint8(45), opts.CarrierChannel)
	assert.Equal(t, uint8(7), opts.PacketPower)
	assert.Equal(t, engine.FailureAbort, opts.FailurePolicy)
	assert.Equal(t, 20*time.Millisecond, opts.SendTimeout)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "bogus: 1",
		"driver":          "radio: {driver: spidev}",
		"policy":          "engine: {failure_policy: retry}",
		"level":           "log_level: loud",
		"carrier range":   "engine: {carrier_channel: 200}",
		"bad destination": "output_destinations: [{host: '', port: 1}]",
		"theme":           "viz_server: {theme: neon}",
		"old interval":    "viz_server: {update_interval_ms: 500ms}",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(in))
			assert.Error(t, err)
		})
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
