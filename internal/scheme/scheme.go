// Package scheme registers one statistics tree per zone and persists the whole mapping scheme.
package scheme

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/scheme-cli/internal/stats"
	"github.com/sells-group/scheme-cli/internal/taxonomy"
)

var (
	// ErrZoneExists is returned when a rename would collide with another zone.
	ErrZoneExists = eris.New("scheme: zone already exists")
	// ErrZoneNotFound is returned for operations on unknown zones.
	ErrZoneNotFound = eris.New("scheme: zone not found")
)

// Zone is a named partition owning its own statistics tree.
type Zone struct {
	Name string
	Tree *stats.Tree
}

// Scheme maps unique zone names to statistics trees, in assignment order.
type Scheme struct {
	codec *taxonomy.Codec
	zones []*Zone
}

// New creates an empty scheme bound to a codec.
func New(codec *taxonomy.Codec) *Scheme {
	return &Scheme{codec: codec}
}

// Codec returns the codec all trees of the scheme share.
func (s *Scheme) Codec() *taxonomy.Codec { return s.codec }

func (s *Scheme) find(name string) int {
	return slices.IndexFunc(s.zones, func(z *Zone) bool { return z.Name == name })
}

// Assign registers tree under zone, replacing any tree already there.
func (s *Scheme) Assign(zone string, tree *stats.Tree) error {
	if strings.TrimSpace(zone) == "" {
		return eris.New("scheme: empty zone name")
	}
	if tree == nil {
		return eris.Errorf("scheme: nil tree for zone %q", zone)
	}
	if tree.Codec().Schema() != s.codec.Schema() {
		return eris.Errorf("scheme: tree for zone %q uses a different schema", zone)
	}
	if i := s.find(zone); i >= 0 {
		s.zones[i].Tree = tree
		return nil
	}
	s.zones = append(s.zones, &Zone{Name: zone, Tree: tree})
	return nil
}

// AssignmentByName returns the tree of a zone.
func (s *Scheme) AssignmentByName(zone string) (*stats.Tree, bool) {
	if i := s.find(zone); i >= 0 {
		return s.zones[i].Tree, true
	}
	return nil, false
}

// AssignmentByNode returns the zone whose tree owns the referenced node.
func (s *Scheme) AssignmentByNode(ref stats.NodeRef) (*Zone, bool) {
	for _, z := range s.zones {
		if z.Tree == ref.Tree && ref.Tree.Contains(ref.ID) {
			return z, true
		}
	}
	return nil, false
}

// Zones returns the zones in assignment order.
func (s *Scheme) Zones() []*Zone { return slices.Clone(s.zones) }

// ZoneNames returns the zone names in assignment order.
func (s *Scheme) ZoneNames() []string {
	names := make([]string, len(s.zones))
	for i, z := range s.zones {
		names[i] = z.Name
	}
	return names
}

// RenameZone renames a zone, rejecting names already in use.
func (s *Scheme) RenameZone(from, to string) error {
	if strings.TrimSpace(to) == "" {
		return eris.New("scheme: empty zone name")
	}
	i := s.find(from)
	if i < 0 {
		return eris.Wrapf(ErrZoneNotFound, "scheme: rename %q", from)
	}
	if from == to {
		return nil
	}
	if s.find(to) >= 0 {
		return eris.Wrapf(ErrZoneExists, "scheme: rename %q to %q", from, to)
	}
	s.zones[i].Name = to
	return nil
}

// Remove deletes a zone and its tree.
func (s *Scheme) Remove(zone string) error {
	i := s.find(zone)
	if i < 0 {
		return eris.Wrapf(ErrZoneNotFound, "scheme: remove %q", zone)
	}
	s.zones = slices.Delete(s.zones, i, i+1)
	return nil
}

// IsEmpty reports whether the scheme has no zones.
func (s *Scheme) IsEmpty() bool { return len(s.zones) == 0 }

// ValidationError lists problems per zone.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "scheme: invalid mapping scheme: " + strings.Join(e.Problems, "; ")
}

// Validate checks every zone's tree. A scheme without zones is invalid.
func (s *Scheme) Validate() error {
	var problems []string
	if s.IsEmpty() {
		problems = append(problems, "no zones")
	}
	for _, z := range s.zones {
		err := z.Tree.Validate()
		if err == nil {
			continue
		}
		var ve *stats.ValidationError
		if !errors.As(err, &ve) {
			problems = append(problems, fmt.Sprintf("zone %q: %v", z.Name, err))
			continue
		}
		for _, p := range ve.Problems {
			problems = append(problems, fmt.Sprintf("zone %q: %s", z.Name, p))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// IsValid reports whether every zone's tree is finalized, sums to one and
// references only codes of the bound schema.
func (s *Scheme) IsValid() bool {
	return s.Validate() == nil
}
