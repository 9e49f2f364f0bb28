// Package tui is the terminal front end: it turns keys into input events and
// renders controller snapshots.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/norasector/nrfjam/pkg/channels"
	"github.com/norasector/nrfjam/pkg/input"
	"github.com/norasector/nrfjam/pkg/jammer"
)

const (
	// releaseDelay is how long after the last key message a release is
	// synthesized; terminals report no key-up events.
	releaseDelay    = 120 * time.Millisecond
	alertDuration   = 250 * time.Millisecond
	eventBufferSize = 16
	receiveChannels = 8
)

// --- STYLES ---
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#575B7E")).
			Padding(0, 1)

	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("62"))
	itemStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	runningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("202")).Bold(true)
	alertStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("196")).Bold(true).Padding(0, 1)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusKeyStyle = lipgloss.NewStyle().Bold(true)
)

// TUI implements jammer.InputSource, jammer.Output and jammer.AlertSink.
type TUI struct {
	events   chan input.Event
	recvChan chan jammer.Snapshot
	alerts   chan string
	opts     []tea.ProgramOption
}

func New(opts ...tea.ProgramOption) *TUI {
	return &TUI{
		events:   make(chan input.Event, eventBufferSize),
		recvChan: make(chan jammer.Snapshot, receiveChannels),
		alerts:   make(chan string, receiveChannels),
		opts:     opts,
	}
}

func (t *TUI) Events() <-chan input.Event {
	return t.events
}

func (t *TUI) Receive() chan<- jammer.Snapshot {
	return t.recvChan
}

// Alert flashes the alert banner. It never blocks.
func (t *TUI) Alert(reason string) {
	select {
	case t.alerts <- reason:
	default:
	}
}

// Start runs the terminal program until the user quits or ctx ends. Quitting
// closes the event channel, which ends the control loop.
func (t *TUI) Start(ctx context.Context) error {
	defer close(t.events)

	p := tea.NewProgram(newModel(t.events), append([]tea.ProgramOption{tea.WithContext(ctx)}, t.opts...)...)

	fwdCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		for {
			select {
			case <-fwdCtx.Done():
				return
			case snap := <-t.recvChan:
				p.Send(snapshotMsg(snap))
			case reason := <-t.alerts:
				p.Send(alertMsg(reason))
			}
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// --- MODEL ---
type snapshotMsg jammer.Snapshot

type alertMsg string

type releaseMsg struct{ seq int }

type alertClearMsg struct{ seq int }

type model struct {
	events chan<- input.Event
	snap   jammer.Snapshot

	held     input.Key
	holding  bool
	heldSeq  int
	alert    string
	alertSeq int
	dropped  int
}

func newModel(events chan<- input.Event) model {
	return model{events: events}
}

func (m model) Init() tea.Cmd {
	return nil
}

func keyFor(msg tea.KeyMsg) (input.Key, bool) {
	switch msg.String() {
	case "up", "k":
		return input.KeyUp, true
	case "down", "j":
		return input.KeyDown, true
	case "left", "h":
		return input.KeyLeft, true
	case "right", "l":
		return input.KeyRight, true
	case "enter", " ":
		return input.KeyOK, true
	case "esc", "backspace":
		return input.KeyBack, true
	}
	return 0, false
}

func (m *model) send(kind input.Kind, k input.Key) {
	select {
	case m.events <- input.Event{Kind: kind, Key: k, At: time.Now()}:
	default:
		m.dropped++
	}
}

// --- UPDATE ---
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		k, ok := keyFor(msg)
		if !ok {
			return m, nil
		}
		// Terminal auto-repeat of the held key only extends the hold; the
		// accelerator's hold ticks produce the repeats.
		if !m.holding || m.held != k {
			if m.holding {
				m.send(input.Release, m.held)
			}
			m.send(input.Press, k)
			m.held, m.holding = k, true
		}
		m.heldSeq++
		seq := m.heldSeq
		return m, tea.Tick(releaseDelay, func(time.Time) tea.Msg { return releaseMsg{seq: seq} })

	case releaseMsg:
		if m.holding && msg.seq == m.heldSeq {
			m.send(input.Release, m.held)
			m.holding = false
		}

	case snapshotMsg:
		m.snap = jammer.Snapshot(msg)

	case alertMsg:
		m.alert = string(msg)
		m.alertSeq++
		seq := m.alertSeq
		return m, tea.Tick(alertDuration, func(time.Time) tea.Msg { return alertClearMsg{seq: seq} })

	case alertClearMsg:
		if msg.seq == m.alertSeq {
			m.alert = ""
		}
	}
	return m, nil
}

// --- VIEW ---
func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("nrfjam"))
	b.WriteString("\n\n")

	items := make([]string, 0, len(channels.Protocols()))
	for _, p := range channels.Protocols() {
		if p == m.snap.Protocol {
			items = append(items, selectedStyle.Render(" "+p.String()+" "))
		} else {
			items = append(items, itemStyle.Render(" "+p.String()+" "))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, items...))
	b.WriteString("\n\n")

	b.WriteString(m.detail())
	b.WriteString("\n\n")

	if m.snap.Running {
		b.WriteString(runningStyle.Render("JAMMING"))
		b.WriteString(fmt.Sprintf("  %s %d  %s %d  %s %d  %s %d",
			statusKeyStyle.Render("writes"), m.snap.Stats.Writes,
			statusKeyStyle.Render("frames"), m.snap.Stats.Frames,
			statusKeyStyle.Render("passes"), m.snap.Stats.Passes,
			statusKeyStyle.Render("failures"), m.snap.Stats.Failures))
		b.WriteString("\n")
	}

	if m.alert != "" {
		b.WriteString(alertStyle.Render("! " + m.alert))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("arrows: select/edit  enter: confirm/stop  esc: back  q: quit"))
	return b.String()
}

func (m model) detail() string {
	s := m.snap
	switch s.FlowState {
	case "set_start", "set_stop", "error":
		start := fmt.Sprintf("start %3d", s.Range.Start)
		stop := fmt.Sprintf("stop %3d", s.Range.Stop)
		switch s.FlowState {
		case "set_start":
			start = selectedStyle.Render(start)
		case "set_stop":
			stop = selectedStyle.Render(stop)
		}
		line := fmt.Sprintf("%s  %s  mode %s", start, stop, s.Range.Mode)
		if s.JammingStarted {
			line += "  " + runningStyle.Render("started")
		}
		return line
	case "mode_select":
		return "wifi mode: " + selectedStyle.Render(s.WiFi.Mode.String())
	case "channel_select":
		return "wifi channel: " + selectedStyle.Render(fmt.Sprintf("%d", s.WiFi.Channel+1))
	case "":
		return ""
	default:
		return "press enter to start " + s.Protocol.String()
	}
}
