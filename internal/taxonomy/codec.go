package taxonomy

import (
	"iter"
	"slices"
	"strings"
)

// Codec parses classification strings against a Schema and serializes values back.
// It holds no mutable state and may be shared freely.
type Codec struct {
	schema *Schema
}

// NewCodec binds a codec to a loaded schema.
func NewCodec(schema *Schema) *Codec {
	return &Codec{schema: schema}
}

// Schema returns the bound reference data.
func (c *Codec) Schema() *Schema {
	return c.schema
}

// Parse splits s into its ordered attribute values. Empty tokens are ignored.
func (c *Codec) Parse(s string) ([]Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ParseError{Token: s, Reason: "empty classification string"}
	}
	var values []Value
	for _, tok := range strings.Split(s, GroupSeparator) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := c.ParseToken(tok)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, &ParseError{Token: s, Reason: "no attribute values"}
	}
	return values, nil
}

// ParseToken parses one group token: "A+B" (multicode), "CODE:payload" (pair) or "CODE".
func (c *Codec) ParseToken(tok string) (Value, error) {
	switch {
	case strings.Contains(tok, AttributeSeparator):
		parts := strings.Split(tok, AttributeSeparator)
		codes := make([]*Code, 0, len(parts))
		for _, p := range parts {
			code, err := c.lookup(p)
			if err != nil {
				return Value{}, err
			}
			if len(codes) > 0 && code.Attribute.Group != codes[0].Attribute.Group {
				return Value{}, &ParseError{Token: tok, Reason: "codes span attribute groups"}
			}
			codes = append(codes, code)
		}
		return Multi(codes...), nil
	case strings.Contains(tok, ValueSeparator):
		name, payload, _ := strings.Cut(tok, ValueSeparator)
		code, err := c.lookup(name)
		if err != nil {
			return Value{}, err
		}
		return Pair(code, payload), nil
	default:
		code, err := c.lookup(tok)
		if err != nil {
			return Value{}, err
		}
		return Single(code), nil
	}
}

func (c *Codec) lookup(name string) (*Code, error) {
	code := c.schema.codes[name]
	if code == nil {
		return nil, &ParseError{Token: name, Reason: "not a valid taxonomy code"}
	}
	return code, nil
}

// ToString serializes values. With fillMissing, every group absent from values
// is completed with its default code, which forces orderAttributes. Ordering is
// by group order, then attribute level. Consecutive values of the same group are
// joined with the attribute separator, others with the group separator.
func (c *Codec) ToString(values []Value, orderAttributes, fillMissing bool) string {
	vals := make([]Value, 0, len(values))
	for _, v := range values {
		if !v.IsZero() {
			vals = append(vals, v)
		}
	}
	if fillMissing {
		present := make(map[*Group]bool, len(vals))
		for _, v := range vals {
			present[v.Group()] = true
		}
		for _, g := range c.schema.groups {
			if present[g] || g.Default == "" {
				continue
			}
			if def, err := c.ParseToken(g.Default); err == nil {
				vals = append(vals, def)
			}
		}
		orderAttributes = true
	}
	if orderAttributes {
		slices.SortStableFunc(vals, compareValues)
	}

	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			if v.Group().Order == vals[i-1].Group().Order {
				sb.WriteString(AttributeSeparator)
			} else {
				sb.WriteString(GroupSeparator)
			}
		}
		sb.WriteString(v.String())
	}
	return sb.String()
}

// ToPositionalString serializes values into the schema's fixed slot layout.
// Marker slots are emitted verbatim; every value lands in each slot of its group,
// several values in one slot are joined with the attribute separator.
func (c *Codec) ToPositionalString(values []Value) string {
	layout := c.schema.positional
	out := make([]string, len(layout))
	for i, slot := range layout {
		out[i] = slot.Marker
	}

	vals := make([]Value, 0, len(values))
	for _, v := range values {
		if !v.IsZero() {
			vals = append(vals, v)
		}
	}
	slices.SortStableFunc(vals, compareValues)

	for _, v := range vals {
		name := v.GroupName()
		for i, slot := range layout {
			if slot.Marker != "" || slot.Group != name {
				continue
			}
			if out[i] == "" {
				out[i] = v.String()
			} else {
				out[i] += AttributeSeparator + v.String()
			}
		}
	}
	return strings.Join(out, GroupSeparator)
}

// CodesByAttribute yields the codes selectable for an attribute. When parent is
// set and a rule exists between the parent's lookup table and the attribute's,
// only the codes permitted under parent are yielded (none if parent has no entry).
// Otherwise every code of the attribute is yielded.
func (c *Codec) CodesByAttribute(attribute string, parent *Code) iter.Seq[*Code] {
	return func(yield func(*Code) bool) {
		attr := c.schema.attrIdx[attribute]
		if attr == nil {
			return
		}
		if parent != nil && parent.Attribute != nil {
			key := tablePair{parent: parent.Attribute.LookupTable, child: attr.LookupTable}
			if rule, ok := c.schema.rules[key]; ok {
				for _, code := range rule[parent.Value] {
					if !yield(code) {
						return
					}
				}
				return
			}
		}
		for _, code := range attr.Codes {
			if !yield(code) {
				return
			}
		}
	}
}
