package ipxact

import "strings"

// Range is a left/right pair of bound expressions.
type Range struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// IsEmpty reports whether neither bound is set.
func (r Range) IsEmpty() bool {
	return r.Left == "" && r.Right == ""
}

// IsComplete reports whether both bounds are set.
func (r Range) IsComplete() bool {
	return r.Left != "" && r.Right != ""
}

// PartSelect selects bits of a physical port, optionally through discrete indices.
type PartSelect struct {
	Range   Range    `json:"range"`
	Indices []string `json:"indices,omitempty"`
}

// IsEmpty reports whether the selection carries no range and no indices.
func (p *PartSelect) IsEmpty() bool {
	return p == nil || (p.Range.IsEmpty() && len(p.Indices) == 0)
}

// Clone returns a deep copy.
func (p *PartSelect) Clone() *PartSelect {
	if p == nil {
		return nil
	}
	c := *p
	c.Indices = append([]string(nil), p.Indices...)
	return &c
}

// BooleanValue is a tri-state boolean: unspecified, true or false.
type BooleanValue int

const (
	BoolUnspecified BooleanValue = iota
	BoolTrue
	BoolFalse
)

// ParseBool maps "true"/"false" to their values and anything else to unspecified.
func ParseBool(s string) BooleanValue {
	switch strings.TrimSpace(s) {
	case "true":
		return BoolTrue
	case "false":
		return BoolFalse
	}
	return BoolUnspecified
}

// NewBool converts a plain bool.
func NewBool(b bool) BooleanValue {
	if b {
		return BoolTrue
	}
	return BoolFalse
}

func (b BooleanValue) String() string {
	switch b {
	case BoolTrue:
		return "true"
	case BoolFalse:
		return "false"
	}
	return ""
}

// IsSpecified reports whether the value is true or false.
func (b BooleanValue) IsSpecified() bool {
	return b != BoolUnspecified
}

// Direction of a component port.
type Direction string

const (
	DirectionUnknown Direction = ""
	DirectionIn      Direction = "in"
	DirectionOut     Direction = "out"
	DirectionInOut   Direction = "inout"
	DirectionPhantom Direction = "phantom"
)

// ParseDirection accepts the IP-XACT spellings of a port direction.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in":
		return DirectionIn
	case "out":
		return DirectionOut
	case "inout":
		return DirectionInOut
	case "phantom":
		return DirectionPhantom
	}
	return DirectionUnknown
}

// Position is a 2D layout coordinate stored as a vendor extension.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}
