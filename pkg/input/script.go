package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var ErrBadScript = errors.New("bad input script")

// defaultTapGap separates the press and release of a "tap" line.
const defaultTapGap = 20 * time.Millisecond

// Step is one parsed script line: either an event or a pause.
type Step struct {
	Event Event
	Wait  time.Duration
}

// ParseScript reads a headless input script. Each non-empty line is one of
//
//	press <key>
//	release <key>
//	tap <key>
//	wait <duration>
//
// Lines starting with # are ignored.
func ParseScript(r io.Reader) ([]Step, error) {
	var steps []Step
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d: %q", ErrBadScript, lineNo, line)
		}

		switch strings.ToLower(fields[0]) {
		case "wait":
			d, err := time.ParseDuration(fields[1])
			if err != nil || d < 0 {
				return nil, fmt.Errorf("%w: line %d: bad duration %q", ErrBadScript, lineNo, fields[1])
			}
			steps = append(steps, Step{Wait: d})
		case "press", "release", "tap":
			k, err := ParseKey(fields[1])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrBadScript, lineNo, err)
			}
			switch strings.ToLower(fields[0]) {
			case "press":
				steps = append(steps, Step{Event: Event{Kind: Press, Key: k}})
			case "release":
				steps = append(steps, Step{Event: Event{Kind: Release, Key: k}})
			default:
				steps = append(steps,
					Step{Event: Event{Kind: Press, Key: k}},
					Step{Wait: defaultTapGap},
					Step{Event: Event{Kind: Release, Key: k}})
			}
		default:
			return nil, fmt.Errorf("%w: line %d: unknown command %q", ErrBadScript, lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

// ScriptSource replays a parsed script as input events.
type ScriptSource struct {
	steps  []Step
	events chan Event
	now    func() time.Time
}

func NewScriptSource(steps []Step) *ScriptSource {
	return &ScriptSource{
		steps:  steps,
		events: make(chan Event),
		now:    time.Now,
	}
}

func (s *ScriptSource) Events() <-chan Event {
	return s.events
}

// Run emits every step in order and closes the event channel when the script
// is exhausted or ctx ends.
func (s *ScriptSource) Run(ctx context.Context) error {
	defer close(s.events)

	for _, step := range s.steps {
		if step.Wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(step.Wait):
			}
			continue
		}

		ev := step.Event
		ev.At = s.now()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s.events <- ev:
		}
	}
	return nil
}
