package jammer

import (
	"context"
	"errors"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"

	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/engine"
	"github.com/norasector/nrfjam/pkg/input"
	"github.com/norasector/nrfjam/pkg/menu"
	"github.com/norasector/nrfjam/pkg/util"
)

const (
	AlertInvalidRange = "invalid range: stop must be above start"
	AlertNoRadio      = "radio not present"
	AlertLaunchFailed = "could not start session"
	AlertAborted      = "session aborted"
)

// control is the single foreground goroutine. It is the only writer of the
// menu, the accelerator and the stop signal.
func (j *Jammer) control(ctx context.Context) error {
	ticker := time.NewTicker(j.accel.Config().HoldTick)
	defer ticker.Stop()
	defer j.stopSession()

	events := j.source.Events()
	j.publish()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				j.logger.Info().Msg("input closed, exiting")
				j.exit = true
				break
			}
			j.reap()
			j.handle(ev)

		case <-ticker.C:
			j.reap()
			j.tick()
		}

		if j.exit {
			j.stopSession()
			j.Stop()
			return nil
		}
	}
}

func (j *Jammer) handle(ev input.Event) {
	if ev.Kind == input.Release {
		j.accel.Release(ev.Key)
		return
	}

	if j.worker.State() != engine.StateIdle {
		switch ev.Key {
		case input.KeyOK, input.KeyBack:
			j.stopSession()
		default:
			j.logger.Debug().Str("key", ev.Key.String()).Msg("ignoring edit while running")
		}
		return
	}

	step := j.accel.Press(ev.Key, ev.At)
	j.apply(ev.Key, step)
}

func (j *Jammer) tick() {
	if j.worker.State() != engine.StateIdle {
		// live counters
		j.publish()
		return
	}
	if !j.menu.Editing() {
		return
	}

	key, step, ok := j.accel.Tick()
	if !ok || (key != input.KeyUp && key != input.KeyDown) {
		return
	}
	j.apply(key, step)
}

func (j *Jammer) apply(key input.Key, step int) {
	outcome := j.menu.Handle(key, step)

	if field := j.menu.Field(); field != j.field {
		j.field = field
		j.accel.Reset()
	}

	switch outcome {
	case menu.OutcomeIgnored:
		j.logger.Debug().
			Str("key", key.String()).
			Str("field", j.field).
			Msg("invalid transition")
		return
	case menu.OutcomeInvalid:
		j.alert(AlertInvalidRange)
	case menu.OutcomeLaunch:
		j.launch()
	case menu.OutcomeExit:
		j.exit = true
	}
	j.publish()
}

func (j *Jammer) launch() {
	if !j.radio.Present() {
		j.alert(AlertNoRadio)
		return
	}

	seq, err := j.menu.Sequence()
	if err != nil {
		j.logger.Error().Err(err).Msg("building channel sequence")
		j.alert(AlertLaunchFailed)
		return
	}

	s, err := j.worker.Start(j.ctx, seq)
	if err != nil {
		j.logger.Warn().Err(err).Msg("session not started")
		return
	}
	j.accel.Reset()
	j.jammingStarted = seq.Protocol == channels.ProtocolCustom

	low, high := util.ChannelRange(seq.Flatten()...)
	j.logger.Info().
		Uint64("session", s.ID).
		Str("protocol", seq.Protocol.String()).
		Str("style", seq.Style.String()).
		Int("channels", seq.Len()).
		Str("low", util.MHzToString(channels.ChannelFrequencyMHz(low))).
		Str("high", util.MHzToString(channels.ChannelFrequencyMHz(high))).
		Msg("session started")

	go j.writeAPI.WritePoint(influxdb2.NewPoint("jam.session.start",
		map[string]string{
			"protocol": seq.Protocol.String(),
			"style":    seq.Style.String(),
		},
		map[string]interface{}{
			"session":  int64(s.ID),
			"channels": seq.Len(),
			"groups":   len(seq.Groups),
			"low":      int(low),
			"high":     int(high),
		}, time.Now()))
}

// stopSession requests stop and joins, bounded by JoinTimeout.
func (j *Jammer) stopSession() {
	if j.worker.Session() == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.opts.JoinTimeout)
	defer cancel()

	stats, err := j.worker.StopAndJoin(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		j.logger.Error().Dur("timeout", j.opts.JoinTimeout).Msg("session did not stop in time")
		return
	case err != nil:
		j.logger.Warn().Err(err).Msg("session ended with error")
	}

	j.jammingStarted = false
	j.logger.Info().
		Str("protocol", stats.Protocol.String()).
		Uint64("writes", stats.Writes).
		Uint64("passes", stats.Passes).
		Msg("session stopped")
	j.publish()
}

// reap joins a session that ended on its own, e.g. after an abort.
func (j *Jammer) reap() {
	if !j.worker.Exited() {
		return
	}
	_, err := j.worker.Join(context.Background())
	j.logger.Warn().Err(err).Msg("session exited")
	j.jammingStarted = false
	if err != nil {
		j.alert(AlertAborted)
	}
	j.publish()
}

func (j *Jammer) alert(reason string) {
	j.pendingAlert = reason
	for _, sink := range j.alerts {
		sink.Alert(reason)
	}

	go j.writeAPI.WritePoint(influxdb2.NewPoint("jam.alert",
		map[string]string{
			"protocol": j.menu.Protocol().String(),
		},
		map[string]interface{}{
			"reason":  reason,
			"present": util.BoolInt(j.radio.Present()),
		}, time.Now()))
}

func (j *Jammer) snapshot() Snapshot {
	snap := Snapshot{
		Time:           time.Now(),
		Protocol:       j.menu.Protocol(),
		FlowState:      j.menu.Flow().State(),
		Range:          j.menu.Range().Config(),
		WiFi:           j.menu.Wifi().Config(),
		Worker:         j.worker.State(),
		JammingStarted: j.jammingStarted,
		Running:        j.worker.Running(),
		Alert:          j.pendingAlert,
	}
	if s := j.worker.Session(); s != nil {
		snap.Session = s.ID
		snap.Stats = s.Stats()
	}
	return snap
}

// publish hands a snapshot to every output without waiting on slow ones.
func (j *Jammer) publish() {
	snap := j.snapshot()
	j.pendingAlert = ""

	skipped := 0
	for _, output := range j.opts.Outputs {
		select {
		case output.Receive() <- snap:
		default:
			skipped++
		}
	}
	if skipped > 0 {
		j.logger.Debug().Int("skipped_outputs", skipped).Msg("output busy")
	}
}
