package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/scheme-cli/internal/config"
	"github.com/sells-group/scheme-cli/internal/scheme"
	"github.com/sells-group/scheme-cli/internal/stats"
	"github.com/sells-group/scheme-cli/internal/store"
	"github.com/sells-group/scheme-cli/internal/survey"
	"github.com/sells-group/scheme-cli/internal/taxonomy"
)

func loadCodec() (*taxonomy.Codec, error) {
	s, err := taxonomy.Load(cfg.Schema.Path, cfg.Schema.Format)
	if err != nil {
		return nil, eris.Wrap(err, "load schema")
	}
	return taxonomy.NewCodec(s), nil
}

func loadScheme(path string) (*scheme.Scheme, error) {
	codec, err := loadCodec()
	if err != nil {
		return nil, err
	}
	return scheme.Load(path, codec)
}

func initStore(ctx context.Context) (store.Store, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		dsn = "schemes.db"
	}
	st, err := store.NewSQLite(dsn)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// treeSetup applies the configured order, skip and modifier groups to a new zone tree.
func treeSetup(tc config.TreeConfig) func(*stats.Tree) error {
	return func(t *stats.Tree) error {
		if len(tc.Order) > 0 {
			if err := t.SetAttributeOrder(tc.Order); err != nil {
				return err
			}
		}
		for _, g := range tc.Skip {
			if err := t.SetSkip(g, true); err != nil {
				return err
			}
		}
		for _, g := range tc.Modifiers {
			if err := t.SetModifier(g, true); err != nil {
				return err
			}
		}
		return nil
	}
}

func surveyOptions(sc config.SurveyConfig, rc config.RangesConfig) survey.Options {
	return survey.Options{
		TaxonomyColumn: sc.TaxonomyColumn,
		ZoneColumn:     sc.ZoneColumn,
		DefaultZone:    sc.DefaultZone,
		HeightColumn:   sc.HeightColumn,
		YearColumn:     sc.YearColumn,
		HeightRanges:   rc.Height,
		YearRanges:     rc.Year,
		HasHeader:      sc.HasHeader,
	}
}

func surveySource(path string, sc config.SurveyConfig) survey.Source {
	return survey.Source{
		Path: path,
		CSV:  survey.CSVOptions{Delimiter: sc.DelimiterRune(), Encoding: sc.Encoding},
		XLSX: survey.XLSXOptions{SheetName: sc.Sheet},
	}
}
