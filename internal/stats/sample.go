package stats

import (
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
)

// Rand is the random source used for sampling. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
}

// cumulative returns the cached prefix sums of the child weights of id.
func (t *Tree) cumulative(id NodeID) []float64 {
	n := &t.nodes[id]
	if n.cum == nil {
		w := t.childWeights(id)
		n.cum = floats.CumSum(make([]float64, len(w)), w)
	}
	return n.cum
}

// RandomLeaf walks from the root, picking each child with probability
// proportional to its weight, and returns the leaf reached.
func (t *Tree) RandomLeaf(rng Rand) (NodeID, error) {
	if t.IsEmpty() {
		return NoNode, eris.Wrap(ErrEmptyTree, "stats: random leaf")
	}
	cur := Root
	for len(t.nodes[cur].children) > 0 {
		cum := t.cumulative(cur)
		total := cum[len(cum)-1]
		if total <= 0 {
			return NoNode, eris.Wrapf(ErrZeroWeight, "stats: random leaf below %q", t.String(cur))
		}
		u := rng.Float64() * total
		i := sort.Search(len(cum), func(i int) bool { return cum[i] > u })
		if i == len(cum) {
			i = len(cum) - 1
		}
		cur = t.nodes[cur].children[i]
	}
	return cur, nil
}

// RandomWalk samples one leaf and returns its classification string.
func (t *Tree) RandomWalk(rng Rand) (string, error) {
	leaf, err := t.RandomLeaf(rng)
	if err != nil {
		return "", err
	}
	return t.String(leaf), nil
}
