// Package viz serves controller status and a live channel coverage chart
// over HTTP.
package viz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/engine"
	"github.com/norasector/nrfjam/pkg/jammer"
	"github.com/norasector/nrfjam/pkg/util"
)

const (
	receiveChannels = 8
	viewedRecently  = time.Second
	shutdownTimeout = 2 * time.Second
)

// Server is a jammer.Output that keeps the latest snapshot and renders the
// coverage chart while someone is looking at it.
type Server struct {
	recvChan       chan jammer.Snapshot
	plotter        *CoveragePlotter
	srv            *http.Server
	router         *httprouter.Router
	updateInterval time.Duration
	logger         zerolog.Logger

	mu         sync.RWMutex
	latest     jammer.Snapshot
	image      []byte
	lastViewed time.Time
}

func NewServer(port int, updateInterval time.Duration, coverage *engine.Coverage, plotOpts ...PlotOptions) *Server {
	s := &Server{
		recvChan:       make(chan jammer.Snapshot, receiveChannels),
		plotter:        NewCoveragePlotter(coverage),
		srv:            &http.Server{Addr: fmt.Sprintf(":%d", port)},
		updateInterval: updateInterval,
		logger:         log.Logger,
	}
	for _, opt := range plotOpts {
		s.plotter.AddPlotOption(opt)
	}
	s.router = s.routes()
	s.srv.Handler = s.router
	return s
}

func (s *Server) Receive() chan<- jammer.Snapshot {
	return s.recvChan
}

// Handler exposes the routes without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case snap := <-s.recvChan:
				s.mu.Lock()
				s.latest = snap
				s.mu.Unlock()
			}
		}
	})

	eg.Go(func() error {
		ticker := time.NewTicker(s.updateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				s.mu.RLock()
				render := time.Since(s.lastViewed) < viewedRecently
				s.mu.RUnlock()
				if render {
					s.refresh()
				}
			}
		}
	})

	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("viz server starting")
		err := s.srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	return eg.Wait()
}

func (s *Server) refresh() []byte {
	var img []byte
	var err error
	took := util.TimeOperationMicroseconds(func() {
		img, err = s.plotter.Render()
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("rendering coverage chart")
		return nil
	}
	s.logger.Trace().Int64("render_us", took).Msg("coverage chart rendered")

	s.mu.Lock()
	s.image = img
	s.mu.Unlock()
	return img
}

func (s *Server) snapshot() jammer.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) viewed() {
	s.mu.Lock()
	s.lastViewed = time.Now()
	s.mu.Unlock()
}

type sequenceResponse struct {
	Protocol  channels.Protocol `json:"protocol"`
	Style     channels.Style    `json:"style"`
	Groups    [][]int           `json:"groups"`
	Channels  int               `json:"channels"`
	LowMHz    int               `json:"low_mhz"`
	HighMHz   int               `json:"high_mhz"`
	CenterMHz float64           `json:"center_mhz"`
	SpanMHz   int               `json:"span_mhz"`
}

type statusResponse struct {
	jammer.Snapshot
	Coverage CoverageSummary `json:"coverage"`
}

func (s *Server) routes() *httprouter.Router {
	handler := httprouter.New()

	handler.GET("/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.viewed()
		snap := s.snapshot()

		w.Header().Add("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>nrfjam</title></head>`)
		fmt.Fprintf(w, `
		<script type="text/javascript">
			window.onload = function() {
				var img = document.getElementById('coverage');
				setInterval(function() {
					img.src = img.src.split("?")[0] + "?" + new Date().getTime();
				}, %d);
			}
		</script>`, s.updateInterval.Milliseconds())
		fmt.Fprint(w, `<body style='background-color: black; color: white; font-family: monospace'>`)
		fmt.Fprintf(w, `<p>protocol: %s | state: %s | worker: %s | running: %t</p>`,
			html.EscapeString(snap.Protocol.String()),
			html.EscapeString(snap.FlowState),
			html.EscapeString(snap.Worker.String()),
			snap.Running)
		fmt.Fprintf(w, `<p>writes: %d | frames: %d | passes: %d | failures: %d</p>`,
			snap.Stats.Writes, snap.Stats.Frames, snap.Stats.Passes, snap.Stats.Failures)
		fmt.Fprintf(w, `<img id="coverage" src="/img/coverage?%d" />`, time.Now().UnixMicro())
		fmt.Fprint(w, `</body></html>`)
	})

	handler.GET("/status", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, statusResponse{
			Snapshot: s.snapshot(),
			Coverage: Summarize(s.plotter.coverage.Snapshot()),
		})
	})

	handler.GET("/sequence/:protocol", func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		p, err := channels.ParseProtocol(params.ByName("protocol"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		snap := s.snapshot()
		seq, err := channels.SequenceFor(p, channels.Params{Range: snap.Range, WiFi: snap.WiFi})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		low, high := util.ChannelRange(seq.Flatten()...)
		center, span := util.CenterFrequencyAndSpan(low, high)
		writeJSON(w, sequenceResponse{
			Protocol:  seq.Protocol,
			Style:     seq.Style,
			Groups:    intGroups(seq.Groups),
			Channels:  seq.Len(),
			LowMHz:    channels.ChannelFrequencyMHz(low),
			HighMHz:   channels.ChannelFrequencyMHz(high),
			CenterMHz: center,
			SpanMHz:   span,
		})
	})

	handler.GET("/img/coverage", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		s.viewed()

		s.mu.RLock()
		img := s.image
		s.mu.RUnlock()
		if img == nil {
			img = s.refresh()
		}
		if img == nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Add("Content-Type", "image/png")
		w.Write(img)
	})

	return handler
}

// intGroups keeps encoding/json from treating channel lists as bytes.
func intGroups(groups [][]uint8) [][]int {
	ret := make([][]int, len(groups))
	for i, group := range groups {
		ret[i] = make([]int, len(group))
		for k, ch := range group {
			ret[i][k] = int(ch)
		}
	}
	return ret
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("error encoding response")
	}
}
