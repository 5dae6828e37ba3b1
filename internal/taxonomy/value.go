package taxonomy

import (
	"cmp"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	// SingleCode holds exactly one code.
	SingleCode Kind = iota
	// Multicode holds two or more codes of one group; the first is primary.
	Multicode
	// PairValue holds one code plus a free-form payload such as a height range.
	PairValue
)

func (k Kind) String() string {
	switch k {
	case SingleCode:
		return "single"
	case Multicode:
		return "multi"
	case PairValue:
		return "pair"
	default:
		return "unknown"
	}
}

// Value is one parsed attribute value of a classification string.
type Value struct {
	Kind    Kind
	Codes   []*Code
	Payload string
}

// Single builds a SingleCode value.
func Single(c *Code) Value {
	return Value{Kind: SingleCode, Codes: []*Code{c}}
}

// Multi builds a Multicode value. The first code is the primary one.
func Multi(codes ...*Code) Value {
	if len(codes) == 1 {
		return Single(codes[0])
	}
	return Value{Kind: Multicode, Codes: codes}
}

// Pair builds a PairValue.
func Pair(c *Code, payload string) Value {
	return Value{Kind: PairValue, Codes: []*Code{c}, Payload: payload}
}

// IsZero reports whether the value holds no code.
func (v Value) IsZero() bool {
	return len(v.Codes) == 0 || v.Codes[0] == nil
}

// Code returns the primary code.
func (v Value) Code() *Code {
	if v.IsZero() {
		return nil
	}
	return v.Codes[0]
}

// Attribute returns the attribute of the primary code.
func (v Value) Attribute() *Attribute {
	if c := v.Code(); c != nil {
		return c.Attribute
	}
	return nil
}

// Group returns the group of the primary code.
func (v Value) Group() *Group {
	if a := v.Attribute(); a != nil {
		return a.Group
	}
	return nil
}

// GroupName returns the group name of the primary code, or "".
func (v Value) GroupName() string {
	if g := v.Group(); g != nil {
		return g.Name
	}
	return ""
}

// String encodes the value in its wire form.
func (v Value) String() string {
	if v.IsZero() {
		return ""
	}
	switch v.Kind {
	case Multicode:
		parts := make([]string, len(v.Codes))
		for i, c := range v.Codes {
			parts[i] = c.Value
		}
		return strings.Join(parts, AttributeSeparator)
	case PairValue:
		if v.Payload == "" {
			return v.Codes[0].Value
		}
		return v.Codes[0].Value + ValueSeparator + v.Payload
	default:
		return v.Codes[0].Value
	}
}

// compareValues orders values by group order, then attribute level.
func compareValues(a, b Value) int {
	ga, gb := a.Group(), b.Group()
	if c := cmp.Compare(ga.Order, gb.Order); c != 0 {
		return c
	}
	return cmp.Compare(a.Attribute().Level, b.Attribute().Level)
}
