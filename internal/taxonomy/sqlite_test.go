package taxonomy

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gemFixture = `
CREATE TABLE dic_gem_attributes (
	attribute TEXT PRIMARY KEY,
	order_in_basic INTEGER,
	order_in_extended INTEGER,
	format INTEGER
);
CREATE TABLE dic_gem_attribute_levels (
	attribute TEXT,
	name TEXT,
	level INTEGER,
	format INTEGER,
	lookup_table TEXT,
	default_value TEXT
);
CREATE TABLE DIC_DIRECTION (code TEXT, description TEXT, scope TEXT);
CREATE TABLE DIC_MAT_TYPE (code TEXT, description TEXT, scope TEXT);
CREATE TABLE DIC_MAT_TECH (code TEXT, description TEXT, scope TEXT);
CREATE TABLE DIC_LLRS (code TEXT, description TEXT, scope TEXT);
CREATE TABLE DIC_HEIGHT (code TEXT, description TEXT, scope TEXT);
CREATE TABLE GEM_RULES (parent_table TEXT, child_table TEXT, parent_code TEXT, child_code TEXT);

INSERT INTO dic_gem_attributes VALUES
	('Direction', NULL, 1, 1),
	('Material', 1, 2, 1),
	('Lateral Load-Resisting System', 2, 3, 1),
	('Height', 3, 4, 2);
INSERT INTO dic_gem_attribute_levels VALUES
	('Direction', 'Direction', 1, 1, 'DIC_DIRECTION', 'DX'),
	('Material', 'Material Type', 1, 1, 'DIC_MAT_TYPE', 'MAT99'),
	('Material', 'Material Technology', 2, 1, 'DIC_MAT_TECH', NULL),
	('Lateral Load-Resisting System', 'Lateral Load-Resisting System', 1, 1, 'DIC_LLRS', 'L99'),
	('Height', 'Height', 1, 2, 'DIC_HEIGHT', 'H99');
INSERT INTO DIC_DIRECTION VALUES ('DX', 'Parallel to street', ''), ('DY', 'Perpendicular to street', '');
INSERT INTO DIC_MAT_TYPE VALUES ('MAT99', 'Unknown material', ''), (' MUR ', 'Masonry, unreinforced', 'global'), ('CR', 'Concrete, reinforced', '');
INSERT INTO DIC_MAT_TECH VALUES ('CLBRS', 'Fired clay solid bricks', ''), ('CIP', 'Cast-in-place concrete', '');
INSERT INTO DIC_LLRS VALUES ('L99', 'Unknown lateral system', ''), ('LWAL', 'Wall', '');
INSERT INTO DIC_HEIGHT VALUES ('H99', 'Unknown height', ''), ('HEX', 'Exact number of storeys', ''), ('HBET', 'Range of storeys', '');
INSERT INTO GEM_RULES VALUES
	('DIC_MAT_TYPE', 'DIC_MAT_TECH', 'MUR', 'CLBRS'),
	('DIC_MAT_TYPE', 'DIC_MAT_TECH', 'CR', 'CIP');
`

func createTestGemDB(t *testing.T, ddl string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gem.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck
	_, err = db.Exec(ddl)
	require.NoError(t, err)
	return path
}

func TestLoadSQLite(t *testing.T) {
	path := createTestGemDB(t, gemFixture)

	s, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "GEM", s.Name)
	assert.Equal(t, []string{"Material", "Lateral Load-Resisting System", "Height"}, s.GroupNames())
	assert.Equal(t, 10, s.CodeCount())
	assert.Nil(t, s.GroupByName("Direction"))
	assert.Nil(t, s.CodeByName("DX"))

	mat := s.GroupByName("Material")
	require.NotNil(t, mat)
	assert.Equal(t, "MAT99", mat.Default)
	assert.Equal(t, 2, mat.Levels)

	mur := s.CodeByName("MUR")
	require.NotNil(t, mur)
	assert.Equal(t, "global", mur.Scope)
	assert.Equal(t, "DIC_MAT_TYPE", mur.Attribute.LookupTable)
	assert.Equal(t, 2, s.GroupByName("Height").Format)
}

func TestLoadSQLite_RulesAndLayout(t *testing.T) {
	s, err := LoadSQLite(createTestGemDB(t, gemFixture))
	require.NoError(t, err)
	c := NewCodec(s)

	assert.True(t, s.HasRule("Material Technology"))
	assert.Equal(t, []string{"CLBRS"}, collect(c, "Material Technology", s.CodeByName("MUR")))
	assert.Equal(t, []string{"CIP"}, collect(c, "Material Technology", s.CodeByName("CR")))

	assert.Equal(t, []Slot{
		{Marker: MarkerDirectionX},
		{Group: "Material"},
		{Group: "Lateral Load-Resisting System"},
		{Marker: MarkerDirectionY},
		{Group: "Material"},
		{Group: "Lateral Load-Resisting System"},
		{Group: "Height"},
	}, s.Positional())

	vals, err := c.Parse("MUR+CLBRS/LWAL/HEX:2")
	require.NoError(t, err)
	assert.Equal(t, "DX/MUR+CLBRS/LWAL/DY/MUR+CLBRS/LWAL/HEX:2", c.ToPositionalString(vals))
	assert.Equal(t, "MUR+CLBRS/LWAL/HEX:2", c.ToString(vals, true, false))
}

func TestLoadSQLite_MissingTables(t *testing.T) {
	path := createTestGemDB(t, `CREATE TABLE unrelated (id INTEGER);`)

	_, err := LoadSQLite(path)
	require.Error(t, err)
	assert.True(t, IsSchemaLoad(err))
}

func TestLoadSQLite_MissingFile(t *testing.T) {
	_, err := LoadSQLite(filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)

	var se *SchemaLoadError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Source, "nope.db")
}

func TestGemLayout(t *testing.T) {
	basic := map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}
	got := gemLayout([]string{"Dir", "A", "B", "C", "X", "D"}, basic)
	assert.Equal(t, []SlotDef{
		{Marker: MarkerDirectionX},
		{Group: "A"},
		{Group: "B"},
		{Marker: MarkerDirectionY},
		{Group: "A"},
		{Group: "B"},
		{Group: "C"},
		{},
		{Group: "D"},
	}, got)

	assert.Nil(t, gemLayout([]string{"A"}, basic))
}
