package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/input"
	"github.com/norasector/nrfjam/pkg/jammer"
)

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

func drain(ch chan input.Event) []string {
	var ret []string
	for {
		select {
		case ev := <-ch:
			ret = append(ret, ev.String())
		default:
			return ret
		}
	}
}

func TestKeysBecomeEvents(t *testing.T) {
	events := make(chan input.Event, 16)
	m := newModel(events)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.NotNil(t, cmd)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, []string{"press up"}, drain(events))

	// a stale release timer is ignored
	m, _ = update(t, m, releaseMsg{seq: 1})
	assert.Empty(t, drain(events))

	m, _ = update(t, m, releaseMsg{seq: 2})
	assert.Equal(t, []string{"release up"}, drain(events))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, []string{"press ok", "release ok", "press back"}, drain(events))

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Empty(t, drain(events))

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestFullEventBufferDrops(t *testing.T) {
	events := make(chan input.Event, 1)
	m := newModel(events)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	// release left and press right both miss the full buffer
	assert.Equal(t, 2, m.dropped)
}

func TestAutoRepeatIsOneHold(t *testing.T) {
	events := make(chan input.Event, 16)
	m := newModel(events)

	for i := 0; i < 4; i++ {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	}
	assert.Equal(t, []string{"press up"}, drain(events))

	// only the timer armed by the last repeat ends the hold
	for seq := 1; seq < 4; seq++ {
		m, _ = update(t, m, releaseMsg{seq: seq})
	}
	assert.Empty(t, drain(events))
	m, _ = update(t, m, releaseMsg{seq: 4})
	assert.Equal(t, []string{"release up"}, drain(events))

	// fed through the accelerator the hold repeats at the held tier only
	a := input.NewAccelerator(input.DefaultConfig())
	now := time.Now()
	var steps []int
	for i := 0; i < 4; i++ {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
		for _, ev := range drainEvents(events) {
			if ev.Kind == input.Press {
				steps = append(steps, a.Press(ev.Key, now.Add(time.Duration(i)*30*time.Millisecond)))
			}
		}
	}
	assert.Equal(t, []int{1}, steps)
}

func drainEvents(ch chan input.Event) []input.Event {
	var ret []input.Event
	for {
		select {
		case ev := <-ch:
			ret = append(ret, ev)
		default:
			return ret
		}
	}
}

func TestViewRendersSnapshot(t *testing.T) {
	m := newModel(make(chan input.Event, 1))
	m, _ = update(t, m, snapshotMsg(jammer.Snapshot{
		Protocol:       channels.ProtocolCustom,
		FlowState:      "set_stop",
		Range:          channels.RangeConfig{Start: 5, Stop: 40},
		Running:        true,
		JammingStarted: true,
	}))

	view := m.View()
	assert.Contains(t, view, "custom")
	assert.Contains(t, view, "stop  40")
	assert.Contains(t, view, "JAMMING")
	assert.Contains(t, view, "started")
}

func TestAlertBanner(t *testing.T) {
	m := newModel(make(chan input.Event, 1))
	m, cmd := update(t, m, alertMsg("radio not present"))
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "radio not present")

	m, _ = update(t, m, alertMsg("invalid range"))
	m, _ = update(t, m, alertClearMsg{seq: 1})
	assert.Contains(t, m.View(), "invalid range")

	m, _ = update(t, m, alertClearMsg{seq: 2})
	assert.NotContains(t, m.View(), "invalid range")
}

func TestAlertNeverBlocks(t *testing.T) {
	ui := New()
	for i := 0; i < 3*receiveChannels; i++ {
		ui.Alert("x")
	}
}
