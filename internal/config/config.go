package config

import (
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/scheme-cli/internal/taxonomy"
)

// Config holds the full application configuration.
type Config struct {
	Schema   SchemaConfig   `yaml:"schema" mapstructure:"schema"`
	Survey   SurveyConfig   `yaml:"survey" mapstructure:"survey"`
	Tree     TreeConfig     `yaml:"tree" mapstructure:"tree"`
	Ranges   RangesConfig   `yaml:"ranges" mapstructure:"ranges"`
	Sampling SamplingConfig `yaml:"sampling" mapstructure:"sampling"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SchemaConfig locates the taxonomy reference data.
type SchemaConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"` // sqlite, yaml, or empty to infer from the extension
}

// SurveyConfig maps survey columns to taxonomy inputs.
type SurveyConfig struct {
	TaxonomyColumn string `yaml:"taxonomy_column" mapstructure:"taxonomy_column"`
	ZoneColumn     string `yaml:"zone_column" mapstructure:"zone_column"`
	DefaultZone    string `yaml:"default_zone" mapstructure:"default_zone"`
	HeightColumn   string `yaml:"height_column" mapstructure:"height_column"`
	YearColumn     string `yaml:"year_column" mapstructure:"year_column"`
	Delimiter      string `yaml:"delimiter" mapstructure:"delimiter"`
	Encoding       string `yaml:"encoding" mapstructure:"encoding"`
	HasHeader      bool   `yaml:"has_header" mapstructure:"has_header"`
	Sheet          string `yaml:"sheet" mapstructure:"sheet"`
}

// TreeConfig shapes every statistics tree built from a survey.
type TreeConfig struct {
	Order     []string `yaml:"order" mapstructure:"order"`
	Skip      []string `yaml:"skip" mapstructure:"skip"`
	Modifiers []string `yaml:"modifiers" mapstructure:"modifiers"`
}

// RangesConfig holds the range groups for numeric survey columns.
type RangesConfig struct {
	Height taxonomy.RangeGroups `yaml:"height" mapstructure:"height"`
	Year   taxonomy.RangeGroups `yaml:"year" mapstructure:"year"`
}

// SamplingConfig configures exposure sampling.
type SamplingConfig struct {
	Seed    uint64 `yaml:"seed" mapstructure:"seed"`
	Count   int    `yaml:"count" mapstructure:"count"`
	Workers int    `yaml:"workers" mapstructure:"workers"`
}

// StoreConfig locates the mapping scheme library.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCHEME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("schema.path", "gem.db")
	v.SetDefault("schema.format", "")
	v.SetDefault("survey.taxonomy_column", "taxonomy")
	v.SetDefault("survey.zone_column", "")
	v.SetDefault("survey.default_zone", "ALL")
	v.SetDefault("survey.height_column", "")
	v.SetDefault("survey.year_column", "")
	v.SetDefault("survey.delimiter", ",")
	v.SetDefault("survey.encoding", "")
	v.SetDefault("survey.has_header", true)
	v.SetDefault("survey.sheet", "")
	v.SetDefault("tree.order", []string{})
	v.SetDefault("tree.skip", []string{})
	v.SetDefault("tree.modifiers", []string{})
	v.SetDefault("sampling.seed", 1)
	v.SetDefault("sampling.count", 100)
	v.SetDefault("sampling.workers", 4)
	v.SetDefault("store.database_url", "schemes.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings that cannot be verified until used: range
// groups, sampling bounds, the schema format and the survey delimiter.
func (c *Config) Validate() error {
	var problems []string

	switch c.Schema.Format {
	case "", taxonomy.FormatSQLite, taxonomy.FormatYAML:
	default:
		problems = append(problems, "schema.format must be sqlite or yaml")
	}
	if utf8.RuneCountInString(c.Survey.Delimiter) > 1 {
		problems = append(problems, "survey.delimiter must be a single character")
	}
	if err := c.Ranges.Height.Validate(); err != nil {
		problems = append(problems, "ranges.height: "+err.Error())
	}
	if err := c.Ranges.Year.Validate(); err != nil {
		problems = append(problems, "ranges.year: "+err.Error())
	}
	if c.Sampling.Count < 1 {
		problems = append(problems, "sampling.count must be >= 1")
	}
	if c.Sampling.Workers < 1 || c.Sampling.Workers > 64 {
		problems = append(problems, "sampling.workers must be between 1 and 64")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DelimiterRune returns the survey delimiter as a rune, 0 for the reader default.
func (s SurveyConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(s.Delimiter)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
