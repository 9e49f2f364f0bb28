package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/radio/sim"
)

func contextForTest(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestWorkerStartWhileRunningIsNoop(t *testing.T) {
	d := sim.New()
	w := NewWorker(newTestEngine(d))
	seq := mustSequence(t, channels.ProtocolDrone, channels.Params{})

	first, err := w.Start(contextForTest(t), seq)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return w.State() == StateRunning }, 5*time.Second, time.Millisecond)

	second, err := w.Start(contextForTest(t), seq)
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Nil(t, second)
	assert.Equal(t, StateRunning, w.State())
	assert.Same(t, first, w.Session())

	_, err = w.StopAndJoin(contextForTest(t))
	require.NoError(t, err)

	third, err := w.Start(contextForTest(t), seq)
	require.NoError(t, err)
	assert.Equal(t, first.ID+1, third.ID)
	_, err = w.StopAndJoin(contextForTest(t))
	require.NoError(t, err)
}

func TestWorkerTransitions(t *testing.T) {
	w := NewWorker(newTestEngine(sim.New()))
	assert.Equal(t, StateIdle, w.State())
	assert.ErrorIs(t, w.RequestStop(), ErrNotRunning)

	_, err := w.Join(contextForTest(t))
	assert.ErrorIs(t, err, ErrNotRunning)

	_, err = w.Start(contextForTest(t), mustSequence(t, channels.ProtocolBLE, channels.Params{}))
	require.NoError(t, err)
	assert.True(t, w.Running())

	require.NoError(t, w.RequestStop())
	assert.Equal(t, StateStopRequested, w.State())
	// a second request is an invalid transition and changes nothing
	assert.ErrorIs(t, w.RequestStop(), ErrNotRunning)
	assert.Equal(t, StateStopRequested, w.State())

	_, err = w.Join(contextForTest(t))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, w.State())
	assert.False(t, w.Running())
	assert.Nil(t, w.Session())
}

func TestWorkerRejectsEmptySequence(t *testing.T) {
	w := NewWorker(newTestEngine(sim.New()))
	_, err := w.Start(contextForTest(t), channels.Sequence{Protocol: channels.ProtocolCustom})
	assert.ErrorIs(t, err, ErrEmptySequence)
	assert.Equal(t, StateIdle, w.State())
}

func TestJoinWithoutStopTimesOut(t *testing.T) {
	d := sim.New()
	w := NewWorker(newTestEngine(d))
	_, err := w.Start(contextForTest(t), mustSequence(t, channels.ProtocolZigbee, channels.Params{}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = w.Join(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, w.Running())

	_, err = w.StopAndJoin(contextForTest(t))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, w.State())
}

func TestStopLatencyIsBoundedByOneWrite(t *testing.T) {
	latency := 2 * time.Millisecond
	d := sim.New(sim.WithLatency(latency))
	w := NewWorker(newTestEngine(d))

	// one pass of the drone sweep takes ~250ms at this latency
	s, err := w.Start(contextForTest(t), mustSequence(t, channels.ProtocolDrone, channels.Params{}))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return d.ChannelWrites() > 5 }, 5*time.Second, time.Millisecond)

	requested := time.Now()
	require.NoError(t, w.RequestStop())
	<-s.Done()
	elapsed := time.Since(requested)

	assert.Less(t, elapsed, 50*latency, "stop took %s", elapsed)
	assert.Less(t, s.Stats().Writes, uint64(125))

	_, err = w.Join(contextForTest(t))
	require.NoError(t, err)
}

func TestCancelStartContextStopsSession(t *testing.T) {
	w := NewWorker(newTestEngine(sim.New()))
	ctx, cancel := context.WithCancel(context.Background())

	s, err := w.Start(ctx, mustSequence(t, channels.ProtocolBluetooth, channels.Params{}))
	require.NoError(t, err)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session ignored context cancellation")
	}

	_, err = w.Join(contextForTest(t))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, w.State())
}

func TestSessionStatsLive(t *testing.T) {
	d := sim.New()
	w := NewWorker(newTestEngine(d))
	s, err := w.Start(contextForTest(t), mustSequence(t, channels.ProtocolBLE, channels.Params{}))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.Stats().Passes >= 2 }, 5*time.Second, time.Millisecond)
	live := s.Stats()
	assert.Equal(t, channels.ProtocolBLE, live.Protocol)
	assert.Equal(t, channels.StylePacket, live.Style)
	assert.Nil(t, s.Err())

	_, err = w.StopAndJoin(contextForTest(t))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s.Stats().Writes, live.Writes)
}
