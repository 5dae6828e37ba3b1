package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/scheme-cli/internal/config"
	"github.com/sells-group/scheme-cli/internal/taxonomy"
)

const (
	testSchema = "../internal/taxonomy/testdata/schema.yaml"
	testSurvey = "../internal/survey/testdata/survey.csv"
)

// useTestConfig installs a configuration pointing at the test fixtures and a
// fresh library database.
func useTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg = &config.Config{
		Schema: config.SchemaConfig{Path: testSchema},
		Survey: config.SurveyConfig{
			TaxonomyColumn: "taxonomy",
			ZoneColumn:     "zone",
			DefaultZone:    "ALL",
			Delimiter:      ",",
			HasHeader:      true,
		},
		Tree: config.TreeConfig{
			Order: []string{"Material", "Lateral Load-Resisting System", "Roof"},
		},
		Sampling: config.SamplingConfig{Seed: 7, Count: 10, Workers: 2},
		Store:    config.StoreConfig{DatabaseURL: filepath.Join(t.TempDir(), "library.db")},
		Log:      config.LogConfig{Level: "info", Format: "json"},
	}
	return cfg
}

func testCodec(t *testing.T) *taxonomy.Codec {
	t.Helper()
	s, err := taxonomy.LoadYAML(testSchema)
	require.NoError(t, err)
	return taxonomy.NewCodec(s)
}

// runCmd executes c's RunE with captured output streams.
func runCmd(t *testing.T, c *cobra.Command, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&errOut)
	c.SetContext(context.Background())
	t.Cleanup(func() {
		c.SetOut(nil)
		c.SetErr(nil)
		c.SetContext(context.TODO())
	})
	err = c.RunE(c, args)
	return out.String(), errOut.String(), err
}

// buildTestScheme builds the fixture survey into a scheme document and returns its path.
func buildTestScheme(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ms.xml")
	buildSurvey, buildOut, buildLibrary = testSurvey, path, ""
	t.Cleanup(func() { buildSurvey, buildOut, buildLibrary = "", "", "" })
	_, _, err := runCmd(t, buildCmd)
	require.NoError(t, err)
	return path
}
