package gesture

import (
	"errors"
	"fmt"
	"strings"
)

// Label is a discrete gesture name.
type Label string

const (
	Fist     Label = "fist"
	OpenPalm Label = "open_palm"
	ThumbsUp Label = "thumbs_up"
	Rotate   Label = "rotate"
	Ice      Label = "ice"
	Pinch    Label = "pinch"
	Click    Label = "click"
	Next     Label = "next"
	Prev     Label = "prev"
	ZoomIn   Label = "zoom_in"
	ZoomOut  Label = "zoom_out"
	Motion   Label = "motion"
	None     Label = "none"
)

// ErrUnknownLabel is returned by ParseLabel for names outside the label set.
var ErrUnknownLabel = errors.New("unknown gesture label")

var labels = []Label{
	Fist, OpenPalm, ThumbsUp, Rotate, Ice, Pinch, Click,
	Next, Prev, ZoomIn, ZoomOut, Motion, None,
}

// Older clients send the hand-sign names instead of the canonical ones.
var aliases = map[string]Label{
	"victory": Rotate,
	"rock":    Ice,
}

// Labels returns every label in declaration order.
func Labels() []Label {
	out := make([]Label, len(labels))
	copy(out, labels)
	return out
}

// ParseLabel normalizes a client-supplied gesture name.
func ParseLabel(s string) (Label, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if l, ok := aliases[name]; ok {
		return l, nil
	}
	for _, l := range labels {
		if string(l) == name {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

func (l Label) String() string { return string(l) }
