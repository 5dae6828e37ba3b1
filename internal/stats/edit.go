package stats

import (
	"iter"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/scheme-cli/internal/taxonomy"
)

// parseGroupValue parses s as the value of a single group.
func (t *Tree) parseGroupValue(s string) (taxonomy.Value, error) {
	vals, err := t.codec.Parse(s)
	if err != nil {
		return taxonomy.Value{}, err
	}
	v := vals[0]
	for _, next := range vals[1:] {
		if next.GroupName() != v.GroupName() {
			return taxonomy.Value{}, &taxonomy.ParseError{Token: s, Reason: "value spans attribute groups"}
		}
		merged, ok := mergeValues(v, next)
		if !ok {
			return taxonomy.Value{}, &taxonomy.ParseError{Token: s, Reason: "attribute group repeated"}
		}
		v = merged
	}
	return v, nil
}

// pathAttributes returns the attributes of id and its ancestors.
func (t *Tree) pathAttributes(id NodeID) map[string]bool {
	set := make(map[string]bool)
	for _, p := range t.Path(id) {
		set[t.nodes[p].attribute] = true
	}
	return set
}

func (t *Tree) resolveValue(attribute, value string) (string, taxonomy.Value, error) {
	v, err := t.parseGroupValue(value)
	if err != nil {
		return "", taxonomy.Value{}, err
	}
	if attribute == "" {
		return v.GroupName(), v, nil
	}
	if v.GroupName() != attribute {
		return "", taxonomy.Value{}, eris.Errorf("stats: value %q does not belong to attribute %q", value, attribute)
	}
	return attribute, v, nil
}

// AddChild appends a coded child under parent. An empty attribute is taken
// from the value's group.
func (t *Tree) AddChild(parent NodeID, attribute, value string, weight float64) (NodeID, error) {
	if err := t.check(parent); err != nil {
		return NoNode, err
	}
	attribute, v, err := t.resolveValue(attribute, value)
	if err != nil {
		return NoNode, err
	}
	if t.pathAttributes(parent)[attribute] {
		return NoNode, &ConflictError{Attribute: attribute}
	}
	return t.newNode(parent, attribute, v, "", weight), nil
}

// AddRawChild appends a child holding a label that is not a taxonomy code.
// Such trees are kept for editing but never validate.
func (t *Tree) AddRawChild(parent NodeID, attribute, label string, weight float64) (NodeID, error) {
	if err := t.check(parent); err != nil {
		return NoNode, err
	}
	if t.pathAttributes(parent)[attribute] {
		return NoNode, &ConflictError{Attribute: attribute}
	}
	return t.newNode(parent, attribute, taxonomy.Value{}, label, weight), nil
}

type branch struct {
	n    node
	kids []branch
}

func (t *Tree) snapshot(id NodeID) branch {
	b := branch{n: t.nodes[id]}
	b.n.children = nil
	b.n.cum = nil
	b.n.extras = b.n.extras.clone()
	for _, c := range t.nodes[id].children {
		b.kids = append(b.kids, t.snapshot(c))
	}
	return b
}

func (t *Tree) graft(parent NodeID, b branch) {
	n := b.n
	n.parent = parent
	// grafted copies carry their weights, not the source's cases
	n.count = 0
	n.pending = false
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	t.nodes[parent].children = append(t.nodes[parent].children, id)
	for _, k := range b.kids {
		t.graft(id, k)
	}
}

// AddBranch grafts copies of the children of source (a node of src, which may
// be t itself) under target. It fails with a ConflictError, leaving the tree
// unchanged, when an attribute below source already occurs on the path from
// the root to target.
func (t *Tree) AddBranch(src *Tree, source, target NodeID) error {
	if err := src.check(source); err != nil {
		return err
	}
	if err := t.check(target); err != nil {
		return err
	}
	if !t.codec.Schema().Compatible(src.codec.Schema()) {
		return eris.New("stats: add branch: trees use different schemas")
	}

	onPath := t.pathAttributes(target)
	var conflict string
	for id, depth := range src.subtree(source) {
		if depth > 0 && onPath[src.nodes[id].attribute] {
			conflict = src.nodes[id].attribute
			break
		}
	}
	if conflict != "" {
		return &ConflictError{Attribute: conflict}
	}

	copies := src.snapshot(source).kids
	if src.codec.Schema() != t.codec.Schema() {
		for i := range copies {
			if err := t.rebind(&copies[i]); err != nil {
				return eris.Wrap(err, "stats: add branch")
			}
		}
	}
	for _, b := range copies {
		t.graft(target, b)
	}
	t.touch(target)
	return nil
}

// rebind resolves the codes of a branch copied from a tree loaded with
// another instance of the same schema against this tree's schema.
func (t *Tree) rebind(b *branch) error {
	if !b.n.value.IsZero() {
		v, err := t.codec.ParseToken(b.n.value.String())
		if err != nil {
			return err
		}
		b.n.value = v
	}
	for i := range b.kids {
		if err := t.rebind(&b.kids[i]); err != nil {
			return err
		}
	}
	return nil
}

// subtree yields id and its descendants in pre-order with their depth relative to id.
func (t *Tree) subtree(id NodeID) iter.Seq2[NodeID, int] {
	return func(yield func(NodeID, int) bool) {
		t.preorder(id, 0, yield)
	}
}

func (t *Tree) kill(id NodeID) {
	for c := range t.subtree(id) {
		t.nodes[c].live = false
		t.nodes[c].cum = nil
	}
}

// UpdateChildren replaces the children of id with one node per (value,
// weight) pair. Weights are stored as given. An empty attribute is taken from
// the first value's group.
func (t *Tree) UpdateChildren(id NodeID, attribute string, values []string, weights []float64) error {
	if err := t.check(id); err != nil {
		return err
	}
	if len(values) != len(weights) {
		return eris.Wrapf(ErrLengthMismatch, "stats: update children: %d values, %d weights", len(values), len(weights))
	}
	parsed := make([]taxonomy.Value, len(values))
	for i, s := range values {
		attr, v, err := t.resolveValue(attribute, s)
		if err != nil {
			return err
		}
		attribute = attr
		parsed[i] = v
	}
	if attribute != "" && t.pathAttributes(id)[attribute] {
		return &ConflictError{Attribute: attribute}
	}

	for _, c := range t.nodes[id].children {
		t.kill(c)
	}
	t.nodes[id].children = nil
	for i, v := range parsed {
		t.newNode(id, attribute, v, "", weights[i])
	}
	t.touch(id)
	return nil
}

// DeleteBranch removes id and its descendants.
func (t *Tree) DeleteBranch(id NodeID) error {
	if err := t.check(id); err != nil {
		return err
	}
	if id == Root {
		return eris.New("stats: cannot delete the root")
	}
	parent := t.nodes[id].parent
	kids := t.nodes[parent].children
	for i, c := range kids {
		if c == id {
			t.nodes[parent].children = append(kids[:i:i], kids[i+1:]...)
			break
		}
	}
	t.kill(id)
	t.touch(parent)
	return nil
}

// SetWeight assigns the weight of a non-root node.
func (t *Tree) SetWeight(id NodeID, weight float64) error {
	if err := t.check(id); err != nil {
		return err
	}
	if id == Root {
		return eris.New("stats: root weight is fixed")
	}
	if weight < 0 {
		return eris.Errorf("stats: negative weight %g", weight)
	}
	t.nodes[id].weight = weight
	t.touch(t.nodes[id].parent)
	return nil
}

// SetExtras replaces the optional numeric fields of id.
func (t *Tree) SetExtras(id NodeID, extras Extras) error {
	if err := t.check(id); err != nil {
		return err
	}
	t.nodes[id].extras = extras.clone()
	return nil
}

// Normalize rescales every sibling set in the subtree of id to sum to 1.
// Nothing changes if any sibling set has zero total weight.
func (t *Tree) Normalize(id NodeID) error {
	if err := t.check(id); err != nil {
		return err
	}
	var parents []NodeID
	for n := range t.subtree(id) {
		if len(t.nodes[n].children) == 0 {
			continue
		}
		if floats.Sum(t.childWeights(n)) <= 0 {
			return eris.Wrapf(ErrZeroWeight, "stats: normalize %s", t.String(n))
		}
		parents = append(parents, n)
	}
	for _, p := range parents {
		w := t.childWeights(p)
		total := floats.Sum(w)
		for _, c := range t.nodes[p].children {
			t.nodes[c].weight /= total
		}
		t.touch(p)
	}
	return nil
}

func (t *Tree) childWeights(id NodeID) []float64 {
	kids := t.nodes[id].children
	w := make([]float64, len(kids))
	for i, c := range kids {
		w[i] = t.nodes[c].weight
	}
	return w
}

// SetCount restores the raw case count of id, as read from a saved tree.
// The sibling set of id is recomputed by the next Finalize unless the tree is
// marked final first.
func (t *Tree) SetCount(id NodeID, count int) error {
	if err := t.check(id); err != nil {
		return err
	}
	if count < 0 {
		return eris.Errorf("stats: negative count %d", count)
	}
	t.nodes[id].count = count
	if p := t.nodes[id].parent; p != NoNode {
		t.nodes[p].pending = true
	}
	return nil
}

// RecordSkipped adds n occurrences of value to the tally of a skipped group.
func (t *Tree) RecordSkipped(group, value string, n int) {
	if t.skipped[group] == nil {
		t.skipped[group] = make(map[string]int)
	}
	t.skipped[group][value] += n
}
