package interpreter

import (
	"yqhp/bitable-doc/internal/document"
)

// Line is one labeled line of a step description. A line with children
// renders its children nested below it.
type Line struct {
	Label    string `json:"label,omitempty"`
	Value    string `json:"value,omitempty"`
	Strong   bool   `json:"strong,omitempty"`
	Children []Line `json:"children,omitempty"`
}

// Text renders the line without indentation.
func (l Line) Text() string {
	label := l.Label
	if l.Strong && label != "" {
		label = "**" + label + "**"
	}
	switch {
	case label == "":
		return l.Value
	case l.Value == "" && len(l.Children) > 0:
		return label + ":"
	default:
		return label + ": " + l.Value
	}
}

// StepDescription is the interpretation of one step.
type StepDescription struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Lines []Line `json:"lines"`
	// Handled is false when no specialized handler matched the type.
	Handled bool `json:"handled"`
	// Consumed lists the payload keys the handler rendered, in order.
	Consumed []string `json:"consumed,omitempty"`
	// Unconsumed lists the payload keys left to the generic fallback.
	Unconsumed []string `json:"unconsumed,omitempty"`
}

// StepIndex maps step ids to 1-based positions in one workflow.
type StepIndex struct {
	positions map[string]int
}

// NewStepIndex indexes steps by id. A repeated id keeps its last position.
func NewStepIndex(steps []any) *StepIndex {
	x := &StepIndex{positions: make(map[string]int, len(steps))}
	for i, step := range steps {
		if id := document.GetString(step, "id"); id != "" {
			x.positions[id] = i + 1
		}
	}
	return x
}

// Lookup returns the position of a step id.
func (x *StepIndex) Lookup(id string) (int, bool) {
	if x == nil {
		return 0, false
	}
	n, ok := x.positions[id]
	return n, ok
}

// Len returns the number of indexed ids.
func (x *StepIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.positions)
}
