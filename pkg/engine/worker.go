package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/norasector/nrfjam/pkg/channels"
)

var (
	ErrAlreadyRunning = errors.New("a session is already active")
	ErrNotRunning     = errors.New("no active session")
)

// State is the worker lifecycle: Idle -> Starting -> Running -> StopRequested -> Idle.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopRequested
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopRequested:
		return "stop_requested"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is the handle of one background sweep.
type Session struct {
	ID       uint64
	Protocol channels.Protocol
	Style    channels.Style

	started time.Time
	stop    StopSignal
	ctr     counters
	done    chan struct{}

	// written by the worker goroutine before done is closed
	stats Stats
	err   error
}

// Done is closed once the engine has returned and the radio is idle.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) exited() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Stats returns live counters while running and the final summary after.
func (s *Session) Stats() Stats {
	if s.exited() {
		return s.stats
	}
	return Stats{
		Protocol: s.Protocol,
		Style:    s.Style,
		Writes:   s.ctr.writes.Load(),
		Frames:   s.ctr.frames.Load(),
		Passes:   s.ctr.passes.Load(),
		Failures: s.ctr.failures.Load(),
		Started:  s.started,
		Duration: time.Since(s.started),
	}
}

// Err is the engine's result; only meaningful after Done is closed.
func (s *Session) Err() error {
	if !s.exited() {
		return nil
	}
	return s.err
}

// Worker owns the single background goroutine that runs the engine. At most
// one session exists at a time.
type Worker struct {
	engine *Engine
	logger zerolog.Logger

	state atomic.Int32

	mu      sync.Mutex
	session *Session
	nextID  uint64
}

func NewWorker(e *Engine) *Worker {
	return &Worker{
		engine: e,
		logger: e.logger,
	}
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

// Running reports whether a session goroutine is alive.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session != nil && !w.session.exited()
}

// Exited reports a session whose goroutine has returned but has not been
// joined yet, e.g. after an abort.
func (w *Worker) Exited() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session != nil && w.session.exited()
}

// Session returns the current session, nil when idle.
func (w *Worker) Session() *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// Start launches seq in the background. It is a no-op returning
// ErrAlreadyRunning unless the worker is idle. Cancelling ctx requests a stop
// the same way RequestStop does.
func (w *Worker) Start(ctx context.Context, seq channels.Sequence) (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if st := w.State(); st != StateIdle {
		return nil, fmt.Errorf("%w (state %s)", ErrAlreadyRunning, st)
	}
	if seq.Len() == 0 {
		return nil, ErrEmptySequence
	}

	w.nextID++
	s := &Session{
		ID:       w.nextID,
		Protocol: seq.Protocol,
		Style:    seq.Style,
		started:  time.Now(),
		done:     make(chan struct{}),
	}
	w.session = s
	w.state.Store(int32(StateStarting))
	w.engine.coverage.Reset()

	cancelWatch := context.AfterFunc(ctx, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		_ = w.requestStopLocked(s)
	})

	go func() {
		defer close(s.done)
		defer cancelWatch()

		w.state.CompareAndSwap(int32(StateStarting), int32(StateRunning))
		s.stats, s.err = w.engine.run(seq, &s.stop, &s.ctr)
	}()

	w.logger.Debug().Uint64("session", s.ID).Str("protocol", seq.Protocol.String()).Msg("worker started")
	return s, nil
}

// RequestStop sets the stop signal of the active session. Valid from Starting
// or Running; otherwise ErrNotRunning and nothing changes.
func (w *Worker) RequestStop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requestStopLocked(w.session)
}

func (w *Worker) requestStopLocked(s *Session) error {
	if s == nil || s != w.session {
		return ErrNotRunning
	}
	st := w.State()
	if st != StateStarting && st != StateRunning {
		return fmt.Errorf("%w (state %s)", ErrNotRunning, st)
	}

	s.stop.Request()
	w.state.Store(int32(StateStopRequested))
	return nil
}

// Join waits for the active session's goroutine to exit and returns the
// worker to Idle. It gives up with ctx.Err() when ctx ends first, leaving the
// session in place, so a caller that forgot RequestStop is not stuck forever.
func (w *Worker) Join(ctx context.Context) (Stats, error) {
	w.mu.Lock()
	s := w.session
	w.mu.Unlock()

	if s == nil {
		return Stats{}, ErrNotRunning
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		return s.Stats(), ctx.Err()
	}

	w.mu.Lock()
	if w.session == s {
		w.session = nil
		w.state.Store(int32(StateIdle))
	}
	w.mu.Unlock()

	w.logger.Debug().Uint64("session", s.ID).AnErr("error", s.err).Msg("worker joined")
	return s.stats, s.err
}

// StopAndJoin is the usual synchronous cancellation: request, then wait.
func (w *Worker) StopAndJoin(ctx context.Context) (Stats, error) {
	if err := w.RequestStop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return Stats{}, err
	}
	return w.Join(ctx)
}
