// Package action maps gesture labels to application actions.
package action

import (
	"sort"

	"github.com/ayusman/gesturecast/internal/gesture"
)

// ID names an application-level command sent to clients.
type ID string

const (
	Select       ID = "select"
	Reset        ID = "reset"
	ScrollDown   ID = "scroll_down"
	RotateBottle ID = "rotate_bottle"
	DropIce      ID = "drop_ice"
	OpenCoke     ID = "open_coke"
	ClickCenter  ID = "click_center"
)

var defaults = map[gesture.Label]ID{
	gesture.ThumbsUp: Select,
	gesture.Fist:     Reset,
	gesture.OpenPalm: ScrollDown,
	gesture.Rotate:   RotateBottle,
	gesture.Ice:      DropIce,
	gesture.Pinch:    OpenCoke,
	gesture.Click:    ClickCenter,
}

// Mapping is an immutable label-to-action table. It is safe for concurrent use.
type Mapping struct {
	table map[gesture.Label]ID
}

// Entry is one row of a Mapping.
type Entry struct {
	Gesture gesture.Label `json:"gesture"`
	Action  ID            `json:"action"`
}

// Default returns the built-in table.
func Default() *Mapping {
	return New(defaults)
}

// New copies table into a Mapping. Rows with an empty action are skipped.
func New(table map[gesture.Label]ID) *Mapping {
	m := &Mapping{table: make(map[gesture.Label]ID, len(table))}
	for l, id := range table {
		if id != "" {
			m.table[l] = id
		}
	}
	return m
}

// Lookup returns the action bound to label. Unmapped labels, including
// gesture.None, report false.
func (m *Mapping) Lookup(label gesture.Label) (ID, bool) {
	id, ok := m.table[label]
	return id, ok
}

// With returns a new Mapping with overrides applied on top of m. An empty
// action removes the binding.
func (m *Mapping) With(overrides map[gesture.Label]ID) *Mapping {
	merged := make(map[gesture.Label]ID, len(m.table)+len(overrides))
	for l, id := range m.table {
		merged[l] = id
	}
	for l, id := range overrides {
		if id == "" {
			delete(merged, l)
			continue
		}
		merged[l] = id
	}
	return &Mapping{table: merged}
}

// Entries lists the bindings sorted by gesture name.
func (m *Mapping) Entries() []Entry {
	out := make([]Entry, 0, len(m.table))
	for l, id := range m.table {
		out = append(out, Entry{Gesture: l, Action: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gesture < out[j].Gesture })
	return out
}

// Len returns the number of bindings.
func (m *Mapping) Len() int {
	return len(m.table)
}
