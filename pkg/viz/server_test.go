package viz

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot"

	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/engine"
	"github.com/norasector/nrfjam/pkg/jammer"
	"github.com/norasector/nrfjam/pkg/radio/sim"
)

// sweptCoverage runs a short BLE sweep so the counters hold real data.
func sweptCoverage(t *testing.T) *engine.Coverage {
	t.Helper()
	d := sim.New()
	e := engine.NewEngine(d, engine.DefaultOptions(), engine.WithLogger(zerolog.Nop()))
	w := engine.NewWorker(e)

	seq, err := channels.SequenceFor(channels.ProtocolBLE, channels.Params{})
	require.NoError(t, err)
	_, err = w.Start(context.Background(), seq)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return d.ChannelWrites() >= 30 }, 5*time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = w.StopAndJoin(ctx)
	require.NoError(t, err)
	return e.Coverage()
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, CoverageSummary{}, Summarize(make([]uint64, 5)))
	assert.Equal(t, CoverageSummary{Visited: 1, Total: 4, Mean: 4}, Summarize([]uint64{0, 4, 0}))

	sum := Summarize([]uint64{2, 0, 4, 0, 6})
	assert.Equal(t, 3, sum.Visited)
	assert.Equal(t, uint64(12), sum.Total)
	assert.InDelta(t, 4.0, sum.Mean, 1e-9)
	assert.InDelta(t, 2.0, sum.StdDev, 1e-9)
}

func TestRoutes(t *testing.T) {
	s := NewServer(0, 50*time.Millisecond, sweptCoverage(t))
	s.latest = jammer.Snapshot{
		Protocol:  channels.ProtocolCustom,
		FlowState: "set_stop",
		Range:     channels.RangeConfig{Start: 10, Stop: 14},
		Worker:    engine.StateIdle,
	}

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	t.Run("status", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/status")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var status map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &status))
		assert.Equal(t, "custom", status["protocol"])
		assert.Equal(t, "idle", status["worker"])
		cov := status["coverage"].(map[string]interface{})
		assert.Equal(t, 3.0, cov["visited"])
	})

	t.Run("sequence", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/sequence/wifi")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var seq sequenceResponse
		require.NoError(t, json.Unmarshal(body, &seq))
		assert.Len(t, seq.Groups, 13)
		assert.Equal(t, 299, seq.Channels)
		assert.Equal(t, 2401, seq.LowMHz)
		assert.Equal(t, 2483, seq.HighMHz)
	})

	t.Run("sequence uses current range", func(t *testing.T) {
		_, body := get(t, ts.URL+"/sequence/custom")
		var seq sequenceResponse
		require.NoError(t, json.Unmarshal(body, &seq))
		assert.Equal(t, [][]int{{10, 11, 12, 13}}, seq.Groups)
	})

	t.Run("unknown protocol", func(t *testing.T) {
		resp, _ := get(t, ts.URL+"/sequence/nightfall")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("coverage image", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/img/coverage")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))
	})

	t.Run("index", func(t *testing.T) {
		resp, body := get(t, ts.URL+"/")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "protocol: custom")
	})
}

func TestStartReceivesSnapshots(t *testing.T) {
	s := NewServer(0, 10*time.Millisecond, engine.NewCoverage())
	s.logger = zerolog.Nop()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Start(ctx) }()

	s.Receive() <- jammer.Snapshot{Session: 7, Running: true}
	require.Eventually(t, func() bool { return s.snapshot().Session == 7 }, 5*time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestThemeOptions(t *testing.T) {
	for _, theme := range []string{"", ThemeDark} {
		opts, err := ThemeOptions(theme)
		require.NoError(t, err)
		assert.Empty(t, opts)
	}
	opts, err := ThemeOptions(ThemeLight)
	require.NoError(t, err)
	require.Len(t, opts, 1)

	p := plotWithDefaults()
	opts[0](p)
	assert.Equal(t, color.White, p.BackgroundColor)

	_, err = ThemeOptions("neon")
	assert.Error(t, err)
}

func TestPlotOptionsApplyToCoverageImage(t *testing.T) {
	var title string
	s := NewServer(0, time.Second, sweptCoverage(t), LightTheme, func(p *plot.Plot) {
		p.Title.Text = "ble sweep"
		title = p.Title.Text
	})
	s.logger = zerolog.Nop()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, body := get(t, ts.URL+"/img/coverage")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))
	assert.Equal(t, "ble sweep", title)
}
