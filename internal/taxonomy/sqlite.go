package taxonomy

import (
	"database/sql"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Direction markers opening the two direction blocks of the positional layout.
const (
	MarkerDirectionX = "DX"
	MarkerDirectionY = "DY"
)

// directionBlock is the number of leading extended-order groups repeated for the second direction.
const directionBlock = 3

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const (
	gemDefaultsQuery = `
SELECT a.attribute, a.default_value
FROM dic_gem_attributes g
INNER JOIN dic_gem_attribute_levels a ON g.attribute = a.attribute
WHERE a.level = 1 AND g.order_in_basic <> ''`

	gemExtendedQuery = `
SELECT attribute FROM dic_gem_attributes ORDER BY order_in_extended ASC`

	gemGroupsQuery = `
SELECT g.order_in_basic, g.attribute, g.format
FROM dic_gem_attributes g
WHERE g.order_in_basic <> ''
ORDER BY g.order_in_basic`

	gemAttributesQuery = `
SELECT a.name, a.level, g.attribute, a.format, a.lookup_table
FROM dic_gem_attributes g
INNER JOIN dic_gem_attribute_levels a ON g.attribute = a.attribute
WHERE g.order_in_basic <> ''
ORDER BY g.order_in_basic, a.level`

	gemRulesQuery = `
SELECT parent_table, child_table, parent_code, child_code FROM GEM_RULES`
)

// LoadSQLite reads the GEM reference database: dic_gem_attributes,
// dic_gem_attribute_levels, one code table per attribute level, and GEM_RULES.
func LoadSQLite(path string) (*Schema, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, schemaErr(path, eris.Wrap(err, "reference database not found"))
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, schemaErr(path, eris.Wrap(err, "sqlite: open"))
	}
	defer db.Close() //nolint:errcheck

	def, err := readGemDefinition(db)
	if err != nil {
		return nil, schemaErr(path, err)
	}
	def.Name = "GEM"
	def.Description = "GEM building taxonomy"
	def.Version = "1.0"
	return NewSchema(def)
}

func readGemDefinition(db *sql.DB) (Definition, error) {
	var def Definition

	defaults := make(map[string]string)
	err := queryRows(db, gemDefaultsQuery, func(rows *sql.Rows) error {
		var group string
		var value sql.NullString
		if err := rows.Scan(&group, &value); err != nil {
			return err
		}
		defaults[strings.TrimSpace(group)] = strings.TrimSpace(value.String)
		return nil
	})
	if err != nil {
		return def, eris.Wrap(err, "sqlite: read group defaults")
	}

	var extended []string
	err = queryRows(db, gemExtendedQuery, func(rows *sql.Rows) error {
		var group string
		if err := rows.Scan(&group); err != nil {
			return err
		}
		extended = append(extended, strings.TrimSpace(group))
		return nil
	})
	if err != nil {
		return def, eris.Wrap(err, "sqlite: read extended order")
	}

	groupPos := make(map[string]int)
	err = queryRows(db, gemGroupsQuery, func(rows *sql.Rows) error {
		var gd GroupDef
		var format sql.NullInt64
		if err := rows.Scan(&gd.Order, &gd.Name, &format); err != nil {
			return err
		}
		gd.Name = strings.TrimSpace(gd.Name)
		gd.Format = int(format.Int64)
		gd.Default = defaults[gd.Name]
		groupPos[gd.Name] = len(def.Groups)
		def.Groups = append(def.Groups, gd)
		return nil
	})
	if err != nil {
		return def, eris.Wrap(err, "sqlite: read attribute groups")
	}

	err = queryRows(db, gemAttributesQuery, func(rows *sql.Rows) error {
		var ad AttributeDef
		var group string
		var format sql.NullInt64
		var lookup sql.NullString
		if err := rows.Scan(&ad.Name, &ad.Level, &group, &format, &lookup); err != nil {
			return err
		}
		ad.Name = strings.TrimSpace(ad.Name)
		ad.Format = int(format.Int64)
		ad.LookupTable = strings.TrimSpace(lookup.String)
		pos, ok := groupPos[strings.TrimSpace(group)]
		if !ok {
			return eris.Errorf("attribute %q references unknown group %q", ad.Name, group)
		}
		def.Groups[pos].Attributes = append(def.Groups[pos].Attributes, ad)
		return nil
	})
	if err != nil {
		return def, eris.Wrap(err, "sqlite: read attributes")
	}

	for gi := range def.Groups {
		for ai := range def.Groups[gi].Attributes {
			ad := &def.Groups[gi].Attributes[ai]
			if ad.LookupTable == "" {
				continue
			}
			if !tableName.MatchString(ad.LookupTable) {
				return def, eris.Errorf("invalid lookup table name %q", ad.LookupTable)
			}
			err := queryRows(db, "SELECT code, description, scope FROM "+ad.LookupTable, func(rows *sql.Rows) error {
				var code, desc, scope sql.NullString
				if err := rows.Scan(&code, &desc, &scope); err != nil {
					return err
				}
				ad.Codes = append(ad.Codes, CodeDef{
					Value:       strings.TrimSpace(code.String),
					Description: strings.TrimSpace(desc.String),
					Scope:       strings.TrimSpace(scope.String),
				})
				return nil
			})
			if err != nil {
				return def, eris.Wrapf(err, "sqlite: read codes from %s", ad.LookupTable)
			}
		}
	}

	err = queryRows(db, gemRulesQuery, func(rows *sql.Rows) error {
		var rd RuleDef
		if err := rows.Scan(&rd.ParentTable, &rd.ChildTable, &rd.ParentCode, &rd.ChildCode); err != nil {
			return err
		}
		rd.ParentTable = strings.TrimSpace(rd.ParentTable)
		rd.ChildTable = strings.TrimSpace(rd.ChildTable)
		rd.ParentCode = strings.TrimSpace(rd.ParentCode)
		rd.ChildCode = strings.TrimSpace(rd.ChildCode)
		def.Rules = append(def.Rules, rd)
		return nil
	})
	if err != nil {
		return def, eris.Wrap(err, "sqlite: read rules")
	}

	def.Positional = gemLayout(extended, groupPos)
	return def, nil
}

// gemLayout repeats the first direction block for the second direction and
// puts a direction marker at the start of each block, in place of the
// leading direction attribute. Groups outside the basic order keep their slot
// but stay empty.
func gemLayout(extended []string, basic map[string]int) []SlotDef {
	if len(extended) == 0 {
		return nil
	}
	block := min(directionBlock, len(extended))
	names := append(append([]string{}, extended[:block]...), extended...)
	slots := make([]SlotDef, len(names))
	for i, name := range names {
		if _, ok := basic[name]; ok {
			slots[i] = SlotDef{Group: name}
		}
	}
	slots[0] = SlotDef{Marker: MarkerDirectionX}
	slots[block] = SlotDef{Marker: MarkerDirectionY}
	return slots
}

func queryRows(db *sql.DB, query string, scan func(*sql.Rows) error) error {
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
