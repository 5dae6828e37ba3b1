// Package taxonomy loads building taxonomy reference data and converts classification strings to attribute values and back.
package taxonomy

import (
	"cmp"
	"slices"

	"github.com/rotisserie/eris"
)

// Separators of the classification string wire format.
const (
	GroupSeparator     = "/"
	AttributeSeparator = "+"
	ValueSeparator     = ":"
)

// Group is an ordered set of attributes sharing one position in a classification string.
type Group struct {
	Name       string
	Order      int
	Levels     int
	Default    string
	Format     int
	Attributes []*Attribute
}

// Attribute is one level inside a group, drawing its codes from a lookup table.
type Attribute struct {
	Name        string
	Group       *Group
	Level       int
	Format      int
	LookupTable string
	Codes       []*Code
}

// Code is a single taxonomy code. Code values are unique across the schema.
type Code struct {
	Value       string
	Description string
	Scope       string
	Attribute   *Attribute
}

func (c *Code) String() string {
	if c == nil {
		return ""
	}
	return c.Value
}

// Slot is one position of the fixed positional encoding. A slot either emits
// a constant marker or collects the values of one group.
type Slot struct {
	Marker string
	Group  string
}

type tablePair struct {
	parent string
	child  string
}

// Schema is the immutable taxonomy reference data. It is safe for concurrent use.
type Schema struct {
	Name        string
	Description string
	Version     string

	groups     []*Group
	attributes []*Attribute
	codes      map[string]*Code
	groupIdx   map[string]*Group
	attrIdx    map[string]*Attribute
	rules      map[tablePair]map[string][]*Code
	positional []Slot
}

// Definition is the logical shape of the reference data, shared by all loaders.
type Definition struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Version     string     `yaml:"version"`
	Groups      []GroupDef `yaml:"groups"`
	Rules       []RuleDef  `yaml:"rules"`
	Positional  []SlotDef  `yaml:"positional"`
}

// GroupDef declares an attribute group.
type GroupDef struct {
	Name       string         `yaml:"name"`
	Order      int            `yaml:"order"`
	Default    string         `yaml:"default"`
	Format     int            `yaml:"format"`
	Attributes []AttributeDef `yaml:"attributes"`
}

// AttributeDef declares an attribute level and its code table.
type AttributeDef struct {
	Name        string    `yaml:"name"`
	Level       int       `yaml:"level"`
	Format      int       `yaml:"format"`
	LookupTable string    `yaml:"lookup_table"`
	Codes       []CodeDef `yaml:"codes"`
}

// CodeDef declares one code.
type CodeDef struct {
	Value       string `yaml:"code"`
	Description string `yaml:"description"`
	Scope       string `yaml:"scope"`
}

// RuleDef permits ChildCode under ParentCode for a pair of lookup tables.
type RuleDef struct {
	ParentTable string `yaml:"parent_table"`
	ChildTable  string `yaml:"child_table"`
	ParentCode  string `yaml:"parent_code"`
	ChildCode   string `yaml:"child_code"`
}

// SlotDef declares one positional slot.
type SlotDef struct {
	Marker string `yaml:"marker"`
	Group  string `yaml:"group"`
}

// NewSchema indexes a definition. Any inconsistency is reported as a SchemaLoadError.
func NewSchema(def Definition) (*Schema, error) {
	s := &Schema{
		Name:        def.Name,
		Description: def.Description,
		Version:     def.Version,
		codes:       make(map[string]*Code),
		groupIdx:    make(map[string]*Group),
		attrIdx:     make(map[string]*Attribute),
		rules:       make(map[tablePair]map[string][]*Code),
	}
	if len(def.Groups) == 0 {
		return nil, schemaErr(def.Name, eris.New("no attribute groups"))
	}

	tables := make(map[string]*Attribute)
	for _, gd := range def.Groups {
		if gd.Name == "" {
			return nil, schemaErr(def.Name, eris.New("attribute group without name"))
		}
		if _, dup := s.groupIdx[gd.Name]; dup {
			return nil, schemaErr(def.Name, eris.Errorf("duplicate attribute group %q", gd.Name))
		}
		g := &Group{Name: gd.Name, Order: gd.Order, Default: gd.Default, Format: gd.Format}
		s.groupIdx[g.Name] = g
		s.groups = append(s.groups, g)

		for _, ad := range gd.Attributes {
			if _, dup := s.attrIdx[ad.Name]; dup {
				return nil, schemaErr(def.Name, eris.Errorf("duplicate attribute %q", ad.Name))
			}
			a := &Attribute{Name: ad.Name, Group: g, Level: ad.Level, Format: ad.Format, LookupTable: ad.LookupTable}
			for _, cd := range ad.Codes {
				if cd.Value == "" {
					continue
				}
				if prev, dup := s.codes[cd.Value]; dup {
					return nil, schemaErr(def.Name, eris.Errorf("code %q defined by both %q and %q", cd.Value, prev.Attribute.Name, a.Name))
				}
				c := &Code{Value: cd.Value, Description: cd.Description, Scope: cd.Scope, Attribute: a}
				s.codes[c.Value] = c
				a.Codes = append(a.Codes, c)
			}
			if a.LookupTable != "" {
				tables[a.LookupTable] = a
			}
			g.Attributes = append(g.Attributes, a)
			s.attrIdx[a.Name] = a
			g.Levels = max(g.Levels, a.Level)
		}
		slices.SortStableFunc(g.Attributes, func(x, y *Attribute) int { return cmp.Compare(x.Level, y.Level) })
	}
	slices.SortStableFunc(s.groups, func(x, y *Group) int { return cmp.Compare(x.Order, y.Order) })
	for _, g := range s.groups {
		s.attributes = append(s.attributes, g.Attributes...)
		if g.Default != "" {
			if _, ok := s.codes[defaultCode(g.Default)]; !ok {
				return nil, schemaErr(def.Name, eris.Errorf("default %q of group %q is not a code", g.Default, g.Name))
			}
		}
	}

	for _, rd := range def.Rules {
		if _, ok := tables[rd.ParentTable]; !ok {
			return nil, schemaErr(def.Name, eris.Errorf("rule references unknown table %q", rd.ParentTable))
		}
		if _, ok := tables[rd.ChildTable]; !ok {
			return nil, schemaErr(def.Name, eris.Errorf("rule references unknown table %q", rd.ChildTable))
		}
		parent, ok := s.codes[rd.ParentCode]
		if !ok {
			return nil, schemaErr(def.Name, eris.Errorf("rule references unknown code %q", rd.ParentCode))
		}
		child, ok := s.codes[rd.ChildCode]
		if !ok {
			return nil, schemaErr(def.Name, eris.Errorf("rule references unknown code %q", rd.ChildCode))
		}
		key := tablePair{parent: rd.ParentTable, child: rd.ChildTable}
		if s.rules[key] == nil {
			s.rules[key] = make(map[string][]*Code)
		}
		s.rules[key][parent.Value] = append(s.rules[key][parent.Value], child)
	}

	for _, sd := range def.Positional {
		if sd.Marker == "" && sd.Group != "" {
			if _, ok := s.groupIdx[sd.Group]; !ok {
				return nil, schemaErr(def.Name, eris.Errorf("positional slot references unknown group %q", sd.Group))
			}
		}
		s.positional = append(s.positional, Slot(sd))
	}
	if len(s.positional) == 0 {
		// without a declared layout, the groups follow a direction slot
		extended := []string{""}
		basic := make(map[string]int, len(s.groups))
		for i, g := range s.groups {
			extended = append(extended, g.Name)
			basic[g.Name] = i
		}
		for _, sd := range gemLayout(extended, basic) {
			s.positional = append(s.positional, Slot(sd))
		}
	}
	return s, nil
}

// defaultCode strips a pair payload from a group default such as "H99" or "HEX:1".
func defaultCode(def string) string {
	for i := 0; i < len(def); i++ {
		if def[i] == ValueSeparator[0] || def[i] == AttributeSeparator[0] {
			return def[:i]
		}
	}
	return def
}

// Compatible reports whether o describes the same taxonomy as s: the same
// name and version, and the same codes under the same attributes. Separate
// loads of one reference database are compatible.
func (s *Schema) Compatible(o *Schema) bool {
	if s == o {
		return true
	}
	if o == nil || s.Name != o.Name || s.Version != o.Version || len(s.codes) != len(o.codes) {
		return false
	}
	for v, c := range s.codes {
		oc, ok := o.codes[v]
		if !ok || oc.Attribute.Name != c.Attribute.Name {
			return false
		}
	}
	return true
}

// Groups returns the attribute groups ascending by order.
func (s *Schema) Groups() []*Group { return s.groups }

// Attributes returns all attributes, by group order then level.
func (s *Schema) Attributes() []*Attribute { return s.attributes }

// Positional returns the slot layout of the positional encoding.
func (s *Schema) Positional() []Slot { return s.positional }

// GroupByName returns the named group or nil.
func (s *Schema) GroupByName(name string) *Group { return s.groupIdx[name] }

// AttributeByName returns the named attribute or nil.
func (s *Schema) AttributeByName(name string) *Attribute { return s.attrIdx[name] }

// CodeByName returns the code with the given value or nil.
func (s *Schema) CodeByName(value string) *Code { return s.codes[value] }

// CodeCount returns the number of codes in the schema.
func (s *Schema) CodeCount() int { return len(s.codes) }

// HasRule reports whether any dependency rule involves the attribute's lookup table.
func (s *Schema) HasRule(attribute string) bool {
	a := s.attrIdx[attribute]
	if a == nil || a.LookupTable == "" {
		return false
	}
	for key := range s.rules {
		if key.parent == a.LookupTable || key.child == a.LookupTable {
			return true
		}
	}
	return false
}

// GroupNames returns the group names ascending by order.
func (s *Schema) GroupNames() []string {
	names := make([]string, len(s.groups))
	for i, g := range s.groups {
		names[i] = g.Name
	}
	return names
}
