package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Tolerance bounds the deviation of weight sums from 1.
const Tolerance = 1e-6

// Validate checks that the tree is finalized and non-empty, that every
// sibling set and the leaf probabilities of both flattenings sum to 1, and
// that every node holds a code of the bound schema. A tree made only of
// modifier levels has no leaves without modifiers and is rejected.
func (t *Tree) Validate() error {
	var problems []string
	if !t.finalized {
		problems = append(problems, "tree is not finalized")
	}
	if t.IsEmpty() {
		problems = append(problems, "tree has no branches")
	}

	schema := t.codec.Schema()
	for id := range t.All() {
		n := &t.nodes[id]
		if id != Root {
			if n.value.IsZero() {
				problems = append(problems, fmt.Sprintf("%q is not a taxonomy code", n.label))
			}
			for _, c := range n.value.Codes {
				if schema.CodeByName(c.Value) != c {
					problems = append(problems, fmt.Sprintf("code %q is not part of schema %q", c.Value, schema.Name))
				}
			}
		}
		if len(n.children) == 0 {
			continue
		}
		if sum := floats.Sum(t.childWeights(id)); math.Abs(sum-1) > Tolerance {
			problems = append(problems, fmt.Sprintf("weights below %q sum to %g", t.describe(id), sum))
		}
	}

	if !t.IsEmpty() {
		if total := leafSum(t.Leaves(false, true)); math.Abs(total-1) > Tolerance {
			problems = append(problems, fmt.Sprintf("leaf probabilities sum to %g", total))
		}
		if t.modifierLeaves(t.nodes[Root].children) {
			problems = append(problems, "every branch below root is a modifier level")
		} else if total := leafSum(t.Leaves(false, false)); math.Abs(total-1) > Tolerance {
			problems = append(problems, fmt.Sprintf("leaf probabilities without modifiers sum to %g", total))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// IsValid reports whether Validate finds no problem.
func (t *Tree) IsValid() bool {
	return t.Validate() == nil
}

func leafSum(leaves []Leaf) float64 {
	var total float64
	for _, l := range leaves {
		total += l.Probability
	}
	return total
}

func (t *Tree) describe(id NodeID) string {
	if id == Root {
		return "root"
	}
	return t.String(id)
}
