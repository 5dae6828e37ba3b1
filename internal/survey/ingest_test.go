package survey

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/scheme-cli/internal/stats"
	"github.com/sells-group/scheme-cli/internal/taxonomy"
)

var structural = []string{"Material", "Lateral Load-Resisting System", "Roof"}

func newTestCodec(t *testing.T) *taxonomy.Codec {
	t.Helper()
	s, err := taxonomy.LoadYAML(filepath.Join("..", "taxonomy", "testdata", "schema.yaml"))
	require.NoError(t, err)
	return taxonomy.NewCodec(s)
}

func orderSetup(order []string, skip ...string) func(*stats.Tree) error {
	return func(tr *stats.Tree) error {
		if err := tr.SetAttributeOrder(order); err != nil {
			return err
		}
		for _, g := range skip {
			if err := tr.SetSkip(g, true); err != nil {
				return err
			}
		}
		return nil
	}
}

func leafMap(tr *stats.Tree) map[string]float64 {
	out := make(map[string]float64)
	for _, l := range tr.Leaves(false, true) {
		out[l.Value] = l.Probability
	}
	return out
}

func TestBuildFile_CSV(t *testing.T) {
	codec := newTestCodec(t)
	opts := Options{TaxonomyColumn: "taxonomy", ZoneColumn: "zone", HasHeader: true}

	s, report, err := BuildFile(context.Background(), Source{Path: "testdata/survey.csv"}, codec, opts, orderSetup(structural))
	require.NoError(t, err)

	assert.Equal(t, 6, report.Accepted)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, 8, report.Rejected[0].Line)
	assert.Equal(t, "MUR/NOPE", report.Rejected[0].Value)
	assert.True(t, taxonomy.IsParse(report.Rejected[0].Err))
	assert.Contains(t, report.Rejected[0].String(), "line 8")
	assert.Equal(t, map[string]int{"Downtown": 4, "Harbor": 1, DefaultZone: 1}, report.Zones)

	assert.Equal(t, []string{"Downtown", "Harbor", DefaultZone}, s.ZoneNames())
	downtown, ok := s.AssignmentByName("Downtown")
	require.True(t, ok)
	assert.True(t, downtown.Finalized())
	leaves := leafMap(downtown)
	assert.InDelta(t, 0.75, leaves["MUR/LWAL/RSH1"], 1e-9)
	assert.InDelta(t, 0.25, leaves["MUR/LWAL/RWO"], 1e-9)
	assert.True(t, s.IsValid())
}

func TestBuildFile_HeightAndYear(t *testing.T) {
	codec := newTestCodec(t)
	opts := Options{
		TaxonomyColumn: "taxonomy",
		ZoneColumn:     "zone",
		HeightColumn:   "storeys",
		YearColumn:     "year",
		HeightRanges:   taxonomy.RangeGroups{{Min: 1, Max: 2}, {Min: 3, Max: 5}},
		HasHeader:      true,
	}
	order := append(append([]string{}, structural...), "Height", "Date of Construction")

	s, report, err := BuildFile(context.Background(), Source{Path: "testdata/survey.csv"}, codec, opts,
		orderSetup(order, "Date of Construction"))
	require.NoError(t, err)
	assert.Equal(t, 6, report.Accepted)

	downtown, _ := s.AssignmentByName("Downtown")
	leaves := leafMap(downtown)
	assert.InDelta(t, 0.75, leaves["MUR/LWAL/RSH1/HBET:1,2"], 1e-9)
	assert.InDelta(t, 0.25, leaves["MUR/LWAL/RWO/HBET:3,5"], 1e-9)
	assert.Equal(t, map[string]int{"YAPP:1950": 1, "YAPP:1955": 1, "YAPP:1949": 1, "YAPP:1980": 1},
		downtown.SkippedValues("Date of Construction"))

	harbor, _ := s.AssignmentByName("Harbor")
	assert.InDelta(t, 1.0, leafMap(harbor)["CR/LFM/RWO/H99"], 1e-9)

	all, _ := s.AssignmentByName(DefaultZone)
	assert.InDelta(t, 1.0, leafMap(all)["W/LWAL/RSH1/H99"], 1e-9)
}

func TestBuilder_NoHeader(t *testing.T) {
	codec := newTestCodec(t)
	b, err := NewBuilder(codec, Options{TaxonomyColumn: "2", HeightColumn: "3", DefaultZone: "Region"},
		orderSetup([]string{"Material", "Height"}))
	require.NoError(t, err)

	require.NoError(t, b.Add(Row{Line: 1, Cells: []string{"1", "MUR", "3"}}))
	require.NoError(t, b.Add(Row{Line: 2, Cells: []string{"2", "MUR", "3.0"}}))
	require.NoError(t, b.Add(Row{Line: 3, Cells: []string{"3", "CR", "tall"}}))
	require.NoError(t, b.Add(Row{Line: 4, Cells: []string{"4"}}))
	require.NoError(t, b.Add(Row{Line: 5, Cells: []string{""}}))

	s, report := b.Finish()
	assert.Equal(t, 2, report.Accepted)
	require.Len(t, report.Rejected, 2)
	assert.Equal(t, 3, report.Rejected[0].Line)
	assert.Contains(t, report.Rejected[0].Err.Error(), "height")
	assert.Equal(t, 4, report.Rejected[1].Line)

	tr, ok := s.AssignmentByName("Region")
	require.True(t, ok)
	assert.InDelta(t, 1.0, leafMap(tr)["MUR/HEX:3"], 1e-9)
}

func TestBuilder_RejectsNonIntegralNumbers(t *testing.T) {
	codec := newTestCodec(t)
	b, err := NewBuilder(codec, Options{TaxonomyColumn: "1", HeightColumn: "2", YearColumn: "3"},
		orderSetup([]string{"Material", "Height", "Date of Construction"}))
	require.NoError(t, err)

	rows := [][]string{
		{"MUR", "2", "1950"},
		{"MUR", "2.5", "1950"},
		{"MUR", "2", "1950.7"},
		{"MUR", "1e30", "1950"},
		{"MUR", "Inf", "1950"},
		{"MUR", "NaN", "1950"},
	}
	for i, cells := range rows {
		require.NoError(t, b.Add(Row{Line: i + 1, Cells: cells}))
	}

	_, report := b.Finish()
	assert.Equal(t, 1, report.Accepted)
	require.Len(t, report.Rejected, 5)
	assert.Contains(t, report.Rejected[0].Err.Error(), "height")
	assert.Contains(t, report.Rejected[0].Err.Error(), "whole number")
	assert.Contains(t, report.Rejected[1].Err.Error(), "year")
	assert.Contains(t, report.Rejected[2].Err.Error(), "out of range")
	assert.Contains(t, report.Rejected[3].Err.Error(), "out of range")
	assert.Contains(t, report.Rejected[4].Err.Error(), "whole number")
}

func TestNewBuilder_Errors(t *testing.T) {
	codec := newTestCodec(t)

	_, err := NewBuilder(codec, Options{}, nil)
	assert.Error(t, err)

	_, err = NewBuilder(codec, Options{TaxonomyColumn: "taxonomy"}, nil)
	assert.Error(t, err, "named column without header")

	_, err = NewBuilder(codec, Options{TaxonomyColumn: "1", HeightRanges: taxonomy.RangeGroups{{Min: 1, Max: 2}, {Min: 4, Max: 5}}}, nil)
	assert.Error(t, err)
}

func TestBuildFile_MissingColumn(t *testing.T) {
	codec := newTestCodec(t)
	opts := Options{TaxonomyColumn: "classification", HasHeader: true}

	_, _, err := BuildFile(context.Background(), Source{Path: "testdata/survey.csv"}, codec, opts, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classification")

	_, _, err = BuildFile(context.Background(), Source{Path: "testdata/missing.csv"}, codec, opts, nil)
	assert.Error(t, err)
}

func TestBuildFile_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Survey": {
			{"Taxonomy", "Zone"},
			{"MUR/LWAL/RSH1", "A"},
			{"MUR/LWAL/RSH1", "A"},
			{"CR/LFM/RWO", "B"},
			{"bogus", "B"},
		},
	})
	codec := newTestCodec(t)
	opts := Options{TaxonomyColumn: "taxonomy", ZoneColumn: "zone", HasHeader: true}

	s, report, err := BuildFile(context.Background(), Source{Path: path}, codec, opts, orderSetup(structural))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Accepted)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, 5, report.Rejected[0].Line)
	assert.Equal(t, []string{"A", "B"}, s.ZoneNames())
	assert.True(t, s.IsValid())
}

func TestBuilder_SetupErrorRejectsRecord(t *testing.T) {
	codec := newTestCodec(t)
	b, err := NewBuilder(codec, Options{TaxonomyColumn: "1"}, orderSetup([]string{"Nope"}))
	require.NoError(t, err)

	require.NoError(t, b.Add(Row{Line: 1, Cells: []string{"MUR"}}))
	s, report := b.Finish()
	assert.Len(t, report.Rejected, 1)
	assert.True(t, s.IsEmpty())
}
