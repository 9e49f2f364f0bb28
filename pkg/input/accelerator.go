package input

import "time"

const (
	stepBase   = 1
	stepSecond = 9
	stepBurst  = 90
	stepHold   = 9
)

type Config struct {
	// Enabled turns on press and hold escalation; when false every press
	// steps by one.
	Enabled bool
	// PressWindow is the largest gap between presses of the same key that
	// still counts as consecutive.
	PressWindow time.Duration
	// HoldTick is the interval at which the controller calls Tick.
	HoldTick time.Duration
	// HoldThreshold is the number of ticks before a held key repeats.
	HoldThreshold int
	// HoldEscalate is the number of ticks after which repeats use the larger step.
	HoldEscalate int
}

func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		PressWindow:   200 * time.Millisecond,
		HoldTick:      100 * time.Millisecond,
		HoldThreshold: 3,
		HoldEscalate:  15,
	}
}

// Accelerator converts presses and holds of the same key into growing numeric
// steps. It is owned by the control loop and is not safe for concurrent use.
type Accelerator struct {
	cfg Config

	lastKey   Key
	lastPress time.Time
	presses   int

	held      Key
	holding   bool
	holdTicks int
}

func NewAccelerator(cfg Config) *Accelerator {
	def := DefaultConfig()
	if cfg.PressWindow <= 0 {
		cfg.PressWindow = def.PressWindow
	}
	if cfg.HoldTick <= 0 {
		cfg.HoldTick = def.HoldTick
	}
	if cfg.HoldThreshold <= 0 {
		cfg.HoldThreshold = def.HoldThreshold
	}
	if cfg.HoldEscalate <= 0 {
		cfg.HoldEscalate = def.HoldEscalate
	}
	return &Accelerator{cfg: cfg}
}

func (a *Accelerator) Config() Config {
	return a.cfg
}

// Press records a press of k at the given time and returns the step to apply.
// The key is considered held until Release.
func (a *Accelerator) Press(k Key, at time.Time) int {
	if a.presses > 0 && k == a.lastKey && !at.Before(a.lastPress) && at.Sub(a.lastPress) <= a.cfg.PressWindow {
		a.presses++
	} else {
		a.presses = 1
	}
	a.lastKey = k
	a.lastPress = at

	a.holdTicks = 0
	a.held = k
	a.holding = true

	if !a.cfg.Enabled {
		return stepBase
	}
	switch a.presses {
	case 1:
		return stepBase
	case 2:
		return stepSecond
	default:
		return stepBurst
	}
}

// Release ends the hold of k. Releases of other keys are ignored.
func (a *Accelerator) Release(k Key) {
	if a.holding && a.held == k {
		a.holding = false
		a.holdTicks = 0
	}
}

// Tick advances the hold counter. Once the threshold is reached it returns the
// held key and the step of the synthesized repeat.
func (a *Accelerator) Tick() (Key, int, bool) {
	if !a.holding {
		return 0, 0, false
	}
	a.holdTicks++
	if a.holdTicks < a.cfg.HoldThreshold {
		return 0, 0, false
	}
	step := stepBase
	if a.cfg.Enabled && a.holdTicks >= a.cfg.HoldEscalate {
		step = stepHold
	}
	return a.held, step, true
}

// Holding returns the held key, if any.
func (a *Accelerator) Holding() (Key, bool) {
	return a.held, a.holding
}

// Reset forgets press history and any hold, e.g. when the edited field changes.
func (a *Accelerator) Reset() {
	a.presses = 0
	a.lastPress = time.Time{}
	a.holding = false
	a.holdTicks = 0
}
