package stats

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/scheme-cli/internal/taxonomy"
)

func TestAddBranch_ConflictLeavesTreeUnchanged(t *testing.T) {
	tr := newScenarioTree(t)
	before := tr.Leaves(true, true)
	mur := child(t, tr, Root, "MUR")

	// grafting the whole tree under its own first child repeats Material
	err := tr.AddBranch(tr, Root, mur)
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Material", ce.Attribute)

	assert.Equal(t, 5, tr.Len())
	assert.Len(t, tr.Children(mur), 1)
	assert.Equal(t, before, tr.Leaves(true, true))
}

func TestAddBranch_GraftsSourceChildren(t *testing.T) {
	tr := newScenarioTree(t)
	mur := child(t, tr, Root, "MUR")
	lwal := child(t, tr, mur, "LWAL")
	rsh1 := child(t, tr, lwal, "RSH1")

	src := New(tr.Codec())
	require.NoError(t, src.SetAttributeOrder([]string{"Occupancy"}))
	for _, c := range []string{"RES", "RES", "RES", "COM"} {
		require.NoError(t, src.AddCase(c))
	}
	src.Finalize()

	require.NoError(t, tr.AddBranch(src, Root, rsh1))
	assert.Len(t, tr.Children(rsh1), len(src.Children(Root)))

	got := make(map[string]float64)
	for _, l := range tr.Leaves(false, true) {
		got[l.Value] = l.Probability
	}
	assert.InDelta(t, 0.5625, got["MUR/LWAL/RSH1/RES"], 1e-9)
	assert.InDelta(t, 0.1875, got["MUR/LWAL/RSH1/COM"], 1e-9)
	assert.InDelta(t, 0.25, got["MUR/LWAL/RWO"], 1e-9)

	// the source keeps its own nodes
	assert.Equal(t, 3, src.Len())
}

func TestAddBranch_GrowsByChildCount(t *testing.T) {
	tr := newScenarioTree(t)
	mur := child(t, tr, Root, "MUR")
	lwal := child(t, tr, mur, "LWAL")
	require.Len(t, tr.Children(lwal), 2)

	src := New(tr.Codec())
	require.NoError(t, src.SetAttributeOrder([]string{"Roof"}))
	_, err := src.AddChild(Root, "", "R99", 1)
	require.NoError(t, err)

	require.NoError(t, tr.AddBranch(src, Root, lwal))
	assert.Len(t, tr.Children(lwal), 3)
}

func TestAddBranch_SameTree(t *testing.T) {
	tr := newTestTree(t, structural, "MUR/LWAL/RSH1", "CR/LFM")
	tr.Finalize()
	mur := child(t, tr, Root, "MUR")
	cr := child(t, tr, Root, "CR")
	lfm := child(t, tr, cr, "LFM")
	lwal := child(t, tr, mur, "LWAL")

	require.NoError(t, tr.AddBranch(tr, lwal, lfm))
	assert.Len(t, tr.Children(lfm), 2)
	assert.Len(t, tr.Children(lwal), 1)
}

func TestAddBranch_InvalidHandles(t *testing.T) {
	tr := newScenarioTree(t)
	assert.True(t, eris.Is(tr.AddBranch(tr, NodeID(42), Root), ErrInvalidNode))
	assert.True(t, eris.Is(tr.AddBranch(tr, Root, NodeID(42)), ErrInvalidNode))

	tiny, err := taxonomy.NewSchema(taxonomy.Definition{
		Name: "tiny",
		Groups: []taxonomy.GroupDef{
			{Name: "A", Order: 1, Attributes: []taxonomy.AttributeDef{{Name: "A", Level: 1, Codes: []taxonomy.CodeDef{{Value: "A1"}}}}},
		},
	})
	require.NoError(t, err)
	other := New(taxonomy.NewCodec(tiny))
	_, err = other.AddChild(Root, "", "A1", 1)
	require.NoError(t, err)
	assert.Error(t, tr.AddBranch(other, Root, Root))
}

func TestAddBranch_SeparatelyLoadedSchema(t *testing.T) {
	tr := newScenarioTree(t)
	mur := child(t, tr, Root, "MUR")
	lwal := child(t, tr, mur, "LWAL")
	rsh1 := child(t, tr, lwal, "RSH1")

	// same reference data, separate load
	src := New(newTestCodec(t))
	require.NotSame(t, tr.Codec().Schema(), src.Codec().Schema())
	require.NoError(t, src.SetAttributeOrder([]string{"Occupancy"}))
	for _, c := range []string{"RES", "RES", "RES", "COM"} {
		require.NoError(t, src.AddCase(c))
	}
	src.Finalize()

	require.NoError(t, tr.AddBranch(src, Root, rsh1))
	res := child(t, tr, rsh1, "RES")
	n, err := tr.Node(res)
	require.NoError(t, err)
	assert.Same(t, tr.Codec().Schema().CodeByName("RES"), n.Value.Code())
	assert.Zero(t, n.Count)
	assert.NoError(t, tr.Validate())
}

func TestFinalize_KeepsEditedWeights(t *testing.T) {
	tr := newScenarioTree(t)
	mur := child(t, tr, Root, "MUR")
	lwal := child(t, tr, mur, "LWAL")

	require.NoError(t, tr.UpdateChildren(lwal, "Roof", []string{"RSH1", "RWO"}, []float64{0.4, 0.6}))
	require.True(t, tr.IsValid())

	tr.Finalize()
	assert.NoError(t, tr.Validate())
	leaves := tr.Leaves(false, true)
	require.Len(t, leaves, 2)
	assert.InDelta(t, 0.4, leaves[0].Probability, 1e-9)
	assert.InDelta(t, 0.6, leaves[1].Probability, 1e-9)
}

func TestFinalize_KeepsGraftedWeights(t *testing.T) {
	tr := newScenarioTree(t)
	src := newTestTree(t, structural, "CR/LFM/RWO", "W/LWAL/RSH1")
	src.Finalize()

	require.NoError(t, tr.AddBranch(src, Root, Root))
	require.NoError(t, tr.Normalize(Root))
	require.True(t, tr.IsValid())

	tr.Finalize()
	assert.NoError(t, tr.Validate())
	assert.InDelta(t, 1.0, leafSum(tr.Leaves(false, true)), 1e-9)
	n, err := tr.Node(child(t, tr, Root, "CR"))
	require.NoError(t, err)
	assert.Zero(t, n.Count)
	assert.InDelta(t, 0.25, n.Weight, 1e-9)
}

func TestFinalize_NewCasesAfterEdit(t *testing.T) {
	tr := newScenarioTree(t)
	mur := child(t, tr, Root, "MUR")
	lwal := child(t, tr, mur, "LWAL")
	require.NoError(t, tr.UpdateChildren(lwal, "Roof", []string{"RSH1", "RWO"}, []float64{0.4, 0.6}))
	tr.Finalize()

	// only the sibling sets the new case passed through are recomputed
	require.NoError(t, tr.AddCase("MUR/LWAL/RSH1"))
	require.NoError(t, tr.AddCase("CR/LFM/RWO"))
	tr.Finalize()
	assert.NoError(t, tr.Validate())

	got := make(map[string]float64)
	for _, l := range tr.Leaves(false, true) {
		got[l.Value] = l.Probability
	}
	assert.InDelta(t, 5.0/6.0, got["MUR/LWAL/RSH1"], 1e-9)
	assert.InDelta(t, 0, got["MUR/LWAL/RWO"], 1e-9)
	assert.InDelta(t, 1.0/6.0, got["CR/LFM/RWO"], 1e-9)
}

func TestSetFinalized_AcceptsRestoredWeights(t *testing.T) {
	tr := New(newTestCodec(t))
	mur, err := tr.AddChild(Root, "", "MUR", 0.25)
	require.NoError(t, err)
	cr, err := tr.AddChild(Root, "", "CR", 0.75)
	require.NoError(t, err)
	require.NoError(t, tr.SetCount(Root, 4))
	require.NoError(t, tr.SetCount(mur, 2))
	require.NoError(t, tr.SetCount(cr, 2))

	tr.SetFinalized(true)
	tr.Finalize()
	n, _ := tr.Node(cr)
	assert.InDelta(t, 0.75, n.Weight, 1e-9)

	// restored counts of an unfinished tree are consumed by Finalize
	require.NoError(t, tr.SetCount(cr, 6))
	tr.Finalize()
	n, _ = tr.Node(cr)
	assert.InDelta(t, 0.75, n.Weight, 1e-9)
	n, _ = tr.Node(mur)
	assert.InDelta(t, 0.25, n.Weight, 1e-9)
}

func TestValidate_ModifierOnlyTree(t *testing.T) {
	tr := newTestTree(t, []string{"Retrofit"}, "RETNO", "RETYES")
	require.NoError(t, tr.SetModifier("Retrofit", true))
	tr.Finalize()

	assert.InDelta(t, 1.0, leafSum(tr.Leaves(false, true)), 1e-9)
	assert.Empty(t, tr.Leaves(false, false))

	var ve *ValidationError
	require.ErrorAs(t, tr.Validate(), &ve)
	assert.Contains(t, ve.Problems, "every branch below root is a modifier level")
}

func TestUpdateChildren(t *testing.T) {
	tr := newScenarioTree(t)
	mur := child(t, tr, Root, "MUR")

	err := tr.UpdateChildren(mur, "Lateral Load-Resisting System", []string{"LWAL", "LFM"}, []float64{0.4, 0.6})
	require.NoError(t, err)

	leaves := tr.Leaves(false, true)
	require.Len(t, leaves, 2)
	assert.Equal(t, "MUR/LWAL", leaves[0].Value)
	assert.InDelta(t, 0.4, leaves[0].Probability, 1e-9)
	assert.Equal(t, "MUR/LFM", leaves[1].Value)
	assert.InDelta(t, 0.6, leaves[1].Probability, 1e-9)
	assert.Equal(t, 4, tr.Len())
}

func TestUpdateChildren_InfersAttribute(t *testing.T) {
	tr := New(newTestCodec(t))
	require.NoError(t, tr.UpdateChildren(Root, "", []string{"MUR+CLBRS", "CR"}, []float64{0.5, 0.5}))

	n, err := tr.Node(tr.Children(Root)[0])
	require.NoError(t, err)
	assert.Equal(t, "Material", n.Attribute)
	assert.Equal(t, taxonomy.Multicode, n.Value.Kind)
}

func TestUpdateChildren_Rejects(t *testing.T) {
	tr := newScenarioTree(t)
	mur := child(t, tr, Root, "MUR")
	lwal := child(t, tr, mur, "LWAL")

	err := tr.UpdateChildren(lwal, "Roof", []string{"RSH1"}, []float64{0.5, 0.5})
	assert.True(t, eris.Is(err, ErrLengthMismatch))

	err = tr.UpdateChildren(lwal, "Material", []string{"CR"}, []float64{1})
	assert.True(t, IsConflict(err))

	err = tr.UpdateChildren(lwal, "Roof", []string{"LWAL"}, []float64{1})
	assert.Error(t, err)

	err = tr.UpdateChildren(lwal, "Roof", []string{"NOPE"}, []float64{1})
	assert.True(t, taxonomy.IsParse(err))

	err = tr.UpdateChildren(lwal, "", []string{"RSH1", "LWAL"}, []float64{0.5, 0.5})
	assert.Error(t, err)

	assert.Len(t, tr.Children(lwal), 2)
	assert.NoError(t, tr.Validate())
}

func TestAddChild(t *testing.T) {
	tr := New(newTestCodec(t))
	mur, err := tr.AddChild(Root, "Material", "MUR", 1)
	require.NoError(t, err)
	lwal, err := tr.AddChild(mur, "", "LWAL", 1)
	require.NoError(t, err)

	_, err = tr.AddChild(lwal, "", "CR", 1)
	assert.True(t, IsConflict(err))
	_, err = tr.AddChild(lwal, "Roof", "HEX:2", 1)
	assert.Error(t, err)

	raw, err := tr.AddRawChild(lwal, "Custom", "something else", 1)
	require.NoError(t, err)
	assert.Equal(t, "MUR/LWAL/something else", tr.String(raw))
	_, ok := tr.Values(raw)
	assert.False(t, ok)
	_, err = tr.AddRawChild(raw, "Custom", "again", 1)
	assert.True(t, IsConflict(err))

	tr.SetFinalized(true)
	var ve *ValidationError
	require.ErrorAs(t, tr.Validate(), &ve)
	assert.Contains(t, ve.Problems, `"something else" is not a taxonomy code`)
}

func TestDeleteBranch(t *testing.T) {
	tr := newScenarioTree(t)
	mur := child(t, tr, Root, "MUR")
	lwal := child(t, tr, mur, "LWAL")
	rwo := child(t, tr, lwal, "RWO")

	require.NoError(t, tr.DeleteBranch(rwo))
	assert.False(t, tr.Contains(rwo))
	assert.Len(t, tr.Children(lwal), 1)
	assert.Len(t, tr.Leaves(false, true), 1)
	assert.False(t, tr.IsValid())

	require.NoError(t, tr.Normalize(Root))
	assert.True(t, tr.IsValid())

	require.NoError(t, tr.DeleteBranch(mur))
	assert.True(t, tr.IsEmpty())
	assert.Equal(t, 1, tr.Len())
	assert.Error(t, tr.DeleteBranch(Root))
	assert.True(t, eris.Is(tr.DeleteBranch(lwal), ErrInvalidNode))
}

func TestNormalize(t *testing.T) {
	tr := New(newTestCodec(t))
	require.NoError(t, tr.UpdateChildren(Root, "Material", []string{"MUR", "CR"}, []float64{2, 6}))
	mur := tr.Children(Root)[0]
	require.NoError(t, tr.UpdateChildren(mur, "", []string{"LWAL", "LFM"}, []float64{1, 1}))

	require.NoError(t, tr.Normalize(Root))
	n, err := tr.Node(mur)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, n.Weight, 1e-9)

	leaves := tr.Leaves(false, true)
	require.Len(t, leaves, 3)
	assert.InDelta(t, 0.125, leaves[0].Probability, 1e-9)
	assert.InDelta(t, 1.0, leafSum(leaves), 1e-9)
}

func TestNormalize_ZeroWeightUnchanged(t *testing.T) {
	tr := New(newTestCodec(t))
	require.NoError(t, tr.UpdateChildren(Root, "Material", []string{"MUR", "CR"}, []float64{2, 6}))
	mur := tr.Children(Root)[0]
	require.NoError(t, tr.UpdateChildren(mur, "", []string{"LWAL"}, []float64{0}))

	err := tr.Normalize(Root)
	assert.True(t, eris.Is(err, ErrZeroWeight))
	n, _ := tr.Node(mur)
	assert.InDelta(t, 2.0, n.Weight, 1e-9)
}

func TestSetWeight(t *testing.T) {
	tr := newScenarioTree(t)
	mur := child(t, tr, Root, "MUR")
	lwal := child(t, tr, mur, "LWAL")
	rsh1 := child(t, tr, lwal, "RSH1")
	rwo := child(t, tr, lwal, "RWO")

	require.NoError(t, tr.SetWeight(rsh1, 0.5))
	require.NoError(t, tr.SetWeight(rwo, 0.5))
	leaves := tr.Leaves(false, true)
	assert.InDelta(t, 0.5, leaves[0].Probability, 1e-9)

	assert.Error(t, tr.SetWeight(Root, 0.5))
	assert.Error(t, tr.SetWeight(rsh1, -1))
}

func TestValidate(t *testing.T) {
	tr := newScenarioTree(t)
	assert.NoError(t, tr.Validate())

	require.NoError(t, tr.AddCase("CR/LFM/RWO"))
	var ve *ValidationError
	require.ErrorAs(t, tr.Validate(), &ve)
	assert.Contains(t, ve.Problems, "tree is not finalized")

	tr.Finalize()
	mur := child(t, tr, Root, "MUR")
	require.NoError(t, tr.UpdateChildren(mur, "", []string{"LWAL", "LFM"}, []float64{0.3, 0.3}))
	require.ErrorAs(t, tr.Validate(), &ve)
	assert.Contains(t, ve.Error(), `weights below "MUR" sum to 0.6`)
	assert.Contains(t, ve.Error(), "leaf probabilities sum to")

	empty := New(newTestCodec(t))
	empty.Finalize()
	assert.False(t, empty.IsValid())
}
