package taxonomy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Supported schema source formats.
const (
	FormatSQLite = "sqlite"
	FormatYAML   = "yaml"
)

// Load reads reference data from path. An empty format is inferred from the
// file extension (.yaml/.yml for YAML, anything else is opened as SQLite).
func Load(path, format string) (*Schema, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = FormatYAML
		default:
			format = FormatSQLite
		}
	}

	var (
		s   *Schema
		err error
	)
	switch format {
	case FormatYAML:
		s, err = LoadYAML(path)
	case FormatSQLite:
		s, err = LoadSQLite(path)
	default:
		return nil, schemaErr(path, eris.Errorf("unsupported schema format %q", format))
	}
	if err != nil {
		return nil, err
	}

	zap.L().Debug("taxonomy: schema loaded",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("groups", len(s.groups)),
		zap.Int("attributes", len(s.attributes)),
		zap.Int("codes", len(s.codes)),
	)
	return s, nil
}

// LoadYAML reads a schema Definition document.
func LoadYAML(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schemaErr(path, eris.Wrap(err, "read file"))
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, schemaErr(path, eris.Wrap(err, "parse yaml"))
	}
	if def.Name == "" {
		def.Name = path
	}
	return NewSchema(def)
}
