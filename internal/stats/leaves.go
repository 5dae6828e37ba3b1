package stats

import "slices"

// Leaf is one fully specified classification with its probability mass.
type Leaf struct {
	Value       string
	Probability float64
	Node        NodeID
}

// Leaves flattens the tree in pre-order. Probability is the product of the
// weights along the path. With withModifier, modifier levels stay in the leaf
// strings; without it, a node whose children are all modifier leaves becomes
// the leaf itself. Results are cached until the tree changes or refresh is set.
func (t *Tree) Leaves(refresh, withModifier bool) []Leaf {
	if cached, ok := t.leaves[withModifier]; ok && !refresh {
		return slices.Clone(cached)
	}
	var out []Leaf
	t.collectLeaves(Root, 1, withModifier, &out)
	if t.leaves == nil {
		t.leaves = make(map[bool][]Leaf, 2)
	}
	t.leaves[withModifier] = out
	return slices.Clone(out)
}

func (t *Tree) collectLeaves(id NodeID, prob float64, withModifier bool, out *[]Leaf) {
	kids := t.nodes[id].children
	if len(kids) == 0 || (!withModifier && t.modifierLeaves(kids)) {
		if id != Root {
			*out = append(*out, Leaf{Value: t.String(id), Probability: prob, Node: id})
		}
		return
	}
	for _, c := range kids {
		t.collectLeaves(c, prob*t.nodes[c].weight, withModifier, out)
	}
}

func (t *Tree) modifierLeaves(kids []NodeID) bool {
	for _, c := range kids {
		n := &t.nodes[c]
		if !t.modifiers[n.attribute] || len(n.children) > 0 {
			return false
		}
	}
	return true
}
