// Package stats holds the weighted statistics tree built from classified building cases.
package stats

import (
	"iter"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/scheme-cli/internal/taxonomy"
)

// NodeID is a stable handle to a node owned by a Tree.
type NodeID int

const (
	// Root is the anonymous root of every tree.
	Root NodeID = 0
	// NoNode marks the absence of a node (the root's parent).
	NoNode NodeID = -1
)

// Extras are the optional numeric fields a node may carry.
type Extras struct {
	AverageSize *float64
	UnitCost    *float64
}

// IsZero reports whether no extra field is set.
func (e Extras) IsZero() bool {
	return e.AverageSize == nil && e.UnitCost == nil
}

func (e Extras) clone() Extras {
	var out Extras
	if e.AverageSize != nil {
		v := *e.AverageSize
		out.AverageSize = &v
	}
	if e.UnitCost != nil {
		v := *e.UnitCost
		out.UnitCost = &v
	}
	return out
}

type node struct {
	attribute string
	value     taxonomy.Value
	label     string
	weight    float64
	count     int
	parent    NodeID
	children  []NodeID
	extras    Extras
	cum       []float64
	live      bool
	// pending marks a node whose children gained counts since the last Finalize.
	pending bool
}

// text is the encoded value, or the raw label for nodes that hold no code.
func (n *node) text() string {
	if n.value.IsZero() {
		return n.label
	}
	return n.value.String()
}

// Node is a read-only snapshot of one tree node.
type Node struct {
	ID        NodeID
	Attribute string
	Value     taxonomy.Value
	Label     string
	Weight    float64
	Count     int
	Parent    NodeID
	Children  []NodeID
	Extras    Extras
}

// NodeRef addresses a node in a specific tree.
type NodeRef struct {
	Tree *Tree
	ID   NodeID
}

// Tree is a weighted branching structure over attribute groups. Levels are
// attribute groups taken in the active order; each node holds the value of
// one group. Nodes live in an arena owned by the tree and are addressed by
// NodeID. A Tree is not safe for concurrent mutation.
type Tree struct {
	codec *taxonomy.Codec
	nodes []node

	order     []string
	skip      map[string]bool
	modifiers map[string]bool
	skipped   map[string]map[string]int
	finalized bool

	leaves map[bool][]Leaf
}

// New creates an empty tree ordered by the schema's group order.
func New(codec *taxonomy.Codec) *Tree {
	t := &Tree{
		codec:     codec,
		order:     codec.Schema().GroupNames(),
		skip:      make(map[string]bool),
		modifiers: make(map[string]bool),
		skipped:   make(map[string]map[string]int),
	}
	t.nodes = append(t.nodes, node{parent: NoNode, weight: 1, live: true})
	return t
}

// Codec returns the codec the tree parses values with.
func (t *Tree) Codec() *taxonomy.Codec { return t.codec }

// SetAttributeOrder replaces the active group ordering. It is only allowed
// while the tree has no branches.
func (t *Tree) SetAttributeOrder(groups []string) error {
	if len(t.nodes[Root].children) > 0 {
		return eris.Wrap(ErrNotEmpty, "stats: set attribute order")
	}
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		if t.codec.Schema().GroupByName(g) == nil {
			return eris.Errorf("stats: unknown attribute group %q", g)
		}
		if seen[g] {
			return eris.Errorf("stats: attribute group %q listed twice", g)
		}
		seen[g] = true
	}
	t.order = slices.Clone(groups)
	return nil
}

// AttributeOrder returns the active group ordering.
func (t *Tree) AttributeOrder() []string { return slices.Clone(t.order) }

// SetSkip marks a group as consuming no tree depth.
func (t *Tree) SetSkip(group string, skip bool) error {
	if t.codec.Schema().GroupByName(group) == nil {
		return eris.Errorf("stats: unknown attribute group %q", group)
	}
	if skip {
		t.skip[group] = true
	} else {
		delete(t.skip, group)
	}
	return nil
}

// IsSkipped reports whether the group is excluded from branching.
func (t *Tree) IsSkipped(group string) bool { return t.skip[group] }

// SkipGroups returns the skipped groups in active order.
func (t *Tree) SkipGroups() []string { return t.flagged(t.skip) }

// SetModifier marks a group as a modifier level.
func (t *Tree) SetModifier(group string, modifier bool) error {
	if t.codec.Schema().GroupByName(group) == nil {
		return eris.Errorf("stats: unknown attribute group %q", group)
	}
	if modifier {
		t.modifiers[group] = true
	} else {
		delete(t.modifiers, group)
	}
	t.leaves = nil
	return nil
}

// IsModifier reports whether the group is a modifier level.
func (t *Tree) IsModifier(group string) bool { return t.modifiers[group] }

// ModifierGroups returns the modifier groups in active order.
func (t *Tree) ModifierGroups() []string { return t.flagged(t.modifiers) }

func (t *Tree) flagged(set map[string]bool) []string {
	var out []string
	for _, g := range t.codec.Schema().GroupNames() {
		if set[g] {
			out = append(out, g)
		}
	}
	return out
}

// SkippedValues returns how often each value of a skipped group was seen during ingestion.
func (t *Tree) SkippedValues(group string) map[string]int {
	out := make(map[string]int, len(t.skipped[group]))
	for k, v := range t.skipped[group] {
		out[k] = v
	}
	return out
}

// Finalized reports whether weights are probabilities.
func (t *Tree) Finalized() bool { return t.finalized }

// SetFinalized marks a tree whose weights were assigned explicitly (loaded or edited).
// Marking it final accepts the current weights; counts not yet consumed by
// Finalize are not recomputed later.
func (t *Tree) SetFinalized(v bool) {
	t.finalized = v
	if v {
		t.clearPending()
	}
}

func (t *Tree) clearPending() {
	for i := range t.nodes {
		t.nodes[i].pending = false
	}
}

// Cases returns the number of cases ingested.
func (t *Tree) Cases() int { return t.nodes[Root].count }

// Len returns the number of live nodes, root included.
func (t *Tree) Len() int {
	n := 0
	for i := range t.nodes {
		if t.nodes[i].live {
			n++
		}
	}
	return n
}

// IsEmpty reports whether the root has no children.
func (t *Tree) IsEmpty() bool { return len(t.nodes[Root].children) == 0 }

// Contains reports whether id names a live node.
func (t *Tree) Contains(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes) && t.nodes[id].live
}

func (t *Tree) check(id NodeID) error {
	if !t.Contains(id) {
		return eris.Wrapf(ErrInvalidNode, "stats: node %d", id)
	}
	return nil
}

// Node returns a snapshot of the node.
func (t *Tree) Node(id NodeID) (Node, error) {
	if err := t.check(id); err != nil {
		return Node{}, err
	}
	n := &t.nodes[id]
	return Node{
		ID:        id,
		Attribute: n.attribute,
		Value:     n.value,
		Label:     n.text(),
		Weight:    n.weight,
		Count:     n.count,
		Parent:    n.parent,
		Children:  slices.Clone(n.children),
		Extras:    n.extras.clone(),
	}, nil
}

// Children returns the node's children in order, or nil for an invalid handle.
func (t *Tree) Children(id NodeID) []NodeID {
	if !t.Contains(id) {
		return nil
	}
	return slices.Clone(t.nodes[id].children)
}

// Parent returns the node's parent, NoNode for the root or an invalid handle.
func (t *Tree) Parent(id NodeID) NodeID {
	if !t.Contains(id) {
		return NoNode
	}
	return t.nodes[id].parent
}

// Path returns the handles from the first level down to id, root excluded.
func (t *Tree) Path(id NodeID) []NodeID {
	var path []NodeID
	for cur := id; t.Contains(cur) && cur != Root; cur = t.nodes[cur].parent {
		path = append(path, cur)
	}
	slices.Reverse(path)
	return path
}

// All yields every live node in pre-order with its depth (root has depth 0).
func (t *Tree) All() iter.Seq2[NodeID, int] {
	return func(yield func(NodeID, int) bool) {
		t.preorder(Root, 0, yield)
	}
}

func (t *Tree) preorder(id NodeID, depth int, yield func(NodeID, int) bool) bool {
	if !yield(id, depth) {
		return false
	}
	for _, c := range t.nodes[id].children {
		if !t.preorder(c, depth+1, yield) {
			return false
		}
	}
	return true
}

// Attributes returns the groups along the first root-to-leaf path.
func (t *Tree) Attributes() []string {
	var out []string
	for cur := Root; len(t.nodes[cur].children) > 0; {
		cur = t.nodes[cur].children[0]
		out = append(out, t.nodes[cur].attribute)
	}
	return out
}

// Values returns the coded values from the first level down to id. ok is
// false when the path holds a raw label.
func (t *Tree) Values(id NodeID) (vals []taxonomy.Value, ok bool) {
	path := t.Path(id)
	vals = make([]taxonomy.Value, 0, len(path))
	for _, p := range path {
		if t.nodes[p].value.IsZero() {
			return nil, false
		}
		vals = append(vals, t.nodes[p].value)
	}
	return vals, true
}

// String encodes the path from the root to id as a classification string.
// Paths holding raw labels are joined verbatim.
func (t *Tree) String(id NodeID) string {
	if vals, ok := t.Values(id); ok {
		return t.codec.ToString(vals, true, false)
	}
	path := t.Path(id)
	labels := make([]string, len(path))
	for i, p := range path {
		labels[i] = t.nodes[p].text()
	}
	return strings.Join(labels, taxonomy.GroupSeparator)
}

// Clone returns a deep copy sharing only the immutable codec.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		codec:     t.codec,
		nodes:     make([]node, len(t.nodes)),
		order:     slices.Clone(t.order),
		skip:      make(map[string]bool, len(t.skip)),
		modifiers: make(map[string]bool, len(t.modifiers)),
		skipped:   make(map[string]map[string]int, len(t.skipped)),
		finalized: t.finalized,
	}
	for i, n := range t.nodes {
		n.children = slices.Clone(n.children)
		n.extras = n.extras.clone()
		n.cum = nil
		c.nodes[i] = n
	}
	for k, v := range t.skip {
		c.skip[k] = v
	}
	for k, v := range t.modifiers {
		c.modifiers[k] = v
	}
	for g, tally := range t.skipped {
		c.skipped[g] = make(map[string]int, len(tally))
		for k, v := range tally {
			c.skipped[g][k] = v
		}
	}
	return c
}

// touch invalidates derived data after the children of id changed.
func (t *Tree) touch(id NodeID) {
	t.nodes[id].cum = nil
	t.leaves = nil
}

func (t *Tree) findChild(parent NodeID, attribute, text string) NodeID {
	for _, c := range t.nodes[parent].children {
		n := &t.nodes[c]
		if n.attribute == attribute && n.text() == text {
			return c
		}
	}
	return NoNode
}

func (t *Tree) newNode(parent NodeID, attribute string, value taxonomy.Value, label string, weight float64) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node{
		attribute: attribute,
		value:     value,
		label:     label,
		weight:    weight,
		parent:    parent,
		live:      true,
	})
	t.nodes[parent].children = append(t.nodes[parent].children, id)
	t.touch(parent)
	return id
}
