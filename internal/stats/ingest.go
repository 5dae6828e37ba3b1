package stats

import (
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/scheme-cli/internal/taxonomy"
)

// AddCase parses s and counts it along its path, creating nodes on demand.
// Groups absent from s are completed with the group default. Skipped groups
// are tallied but create no node. On error the tree is unchanged.
func (t *Tree) AddCase(s string) error {
	vals, err := t.codec.Parse(s)
	if err != nil {
		return err
	}
	byGroup := make(map[string]taxonomy.Value, len(vals))
	for _, v := range vals {
		g := v.GroupName()
		prev, ok := byGroup[g]
		if !ok {
			byGroup[g] = v
			continue
		}
		merged, ok := mergeValues(prev, v)
		if !ok {
			return &taxonomy.ParseError{Token: v.String(), Reason: "attribute group repeated"}
		}
		byGroup[g] = merged
	}

	schema := t.codec.Schema()
	type step struct {
		group string
		value taxonomy.Value
	}
	steps := make([]step, 0, len(t.order))
	var skipped []step
	for _, g := range t.order {
		v, ok := byGroup[g]
		if !ok {
			def := schema.GroupByName(g).Default
			if def == "" {
				return &taxonomy.ParseError{Token: s, Reason: "missing attribute group " + g}
			}
			if v, err = t.codec.ParseToken(def); err != nil {
				return err
			}
		}
		if t.skip[g] {
			skipped = append(skipped, step{g, v})
			continue
		}
		steps = append(steps, step{g, v})
	}

	for _, st := range skipped {
		t.RecordSkipped(st.group, st.value.String(), 1)
	}
	cur := Root
	t.nodes[cur].count++
	for _, st := range steps {
		t.nodes[cur].pending = true
		next := t.findChild(cur, st.group, st.value.String())
		if next == NoNode {
			next = t.newNode(cur, st.group, st.value, "", 0)
		}
		t.nodes[next].count++
		cur = next
	}
	t.finalized = false
	t.leaves = nil
	return nil
}

// mergeValues combines two values of one group given as separate tokens
// ("MUR/CLBRS") into a multicode. Pairs and repeated levels do not merge.
func mergeValues(a, b taxonomy.Value) (taxonomy.Value, bool) {
	if a.Kind == taxonomy.PairValue || b.Kind == taxonomy.PairValue {
		return taxonomy.Value{}, false
	}
	codes := slices.Concat(a.Codes, b.Codes)
	for i, c := range codes {
		for _, d := range codes[:i] {
			if c.Attribute == d.Attribute {
				return taxonomy.Value{}, false
			}
		}
	}
	slices.SortStableFunc(codes, func(x, y *taxonomy.Code) int { return x.Attribute.Level - y.Attribute.Level })
	return taxonomy.Multi(codes...), true
}

// Finalize turns case counts into probabilities. Only sibling sets that
// gained cases since the previous Finalize are recomputed: each child's weight
// becomes its share of the counts in its set, which for ingested trees is its
// count over its parent's count. Weights set by editing, grafting or loading
// are kept, so a tree without new cases is only marked final.
func (t *Tree) Finalize() {
	recomputed := 0
	for i := range t.nodes {
		n := &t.nodes[i]
		if !n.live || !n.pending {
			continue
		}
		total := 0
		for _, c := range n.children {
			total += t.nodes[c].count
		}
		if total > 0 {
			for _, c := range n.children {
				t.nodes[c].weight = float64(t.nodes[c].count) / float64(total)
			}
		}
		n.pending = false
		n.cum = nil
		recomputed++
	}
	t.finalized = true
	t.leaves = nil
	zap.L().Debug("stats: tree finalized",
		zap.Int("cases", t.nodes[Root].count),
		zap.Int("nodes", t.Len()),
		zap.Int("recomputed", recomputed),
	)
}
