// Package input turns key presses into menu events and numeric steps.
package input

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownKey = errors.New("unknown key")

type Kind int

const (
	Press Kind = iota
	Release
)

func (k Kind) String() string {
	if k == Release {
		return "release"
	}
	return "press"
}

type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
	KeyOK
	KeyBack
)

var keyNames = [...]string{"up", "down", "left", "right", "ok", "back"}

func (k Key) String() string {
	if k < 0 || int(k) >= len(keyNames) {
		return fmt.Sprintf("key(%d)", int(k))
	}
	return keyNames[k]
}

// Directional reports the four arrow keys.
func (k Key) Directional() bool {
	return k >= KeyUp && k <= KeyRight
}

func ParseKey(s string) (Key, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range keyNames {
		if name == s {
			return Key(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

type Event struct {
	Kind Kind
	Key  Key
	At   time.Time
}

func (e Event) String() string {
	return e.Kind.String() + " " + e.Key.String()
}
