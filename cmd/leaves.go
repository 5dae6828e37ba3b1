package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/scheme-cli/internal/scheme"
)

var (
	leavesMS          string
	leavesZone        string
	leavesNoModifiers bool
	leavesPositional  bool
	leavesFormat      string
)

// leafRow is one flattened classification of one zone.
type leafRow struct {
	Zone        string  `json:"zone"`
	Taxonomy    string  `json:"taxonomy"`
	Probability float64 `json:"probability"`
}

var leavesCmd = &cobra.Command{
	Use:   "leaves",
	Short: "List the leaf classifications of a mapping scheme",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ms, err := loadScheme(leavesMS)
		if err != nil {
			return err
		}
		rows, err := collectLeaves(ms, leavesZone, !leavesNoModifiers, leavesPositional)
		if err != nil {
			return err
		}
		return writeLeaves(cmd.OutOrStdout(), rows, leavesFormat)
	},
}

func collectLeaves(ms *scheme.Scheme, zone string, withModifier, positional bool) ([]leafRow, error) {
	zones := ms.Zones()
	if zone != "" {
		tree, ok := ms.AssignmentByName(zone)
		if !ok {
			return nil, eris.Wrapf(scheme.ErrZoneNotFound, "leaves: zone %q", zone)
		}
		zones = []*scheme.Zone{{Name: zone, Tree: tree}}
	}

	var rows []leafRow
	for _, z := range zones {
		for _, l := range z.Tree.Leaves(false, withModifier) {
			value := l.Value
			if positional {
				if vals, ok := z.Tree.Values(l.Node); ok {
					value = ms.Codec().ToPositionalString(vals)
				}
			}
			rows = append(rows, leafRow{Zone: z.Name, Taxonomy: value, Probability: l.Probability})
		}
	}
	return rows, nil
}

func writeLeaves(out io.Writer, rows []leafRow, format string) error {
	switch format {
	case "", "table":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ZONE\tTAXONOMY\tPROBABILITY")
		_, _ = fmt.Fprintln(w, "----\t--------\t-----------")
		for _, r := range rows {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%.4f\n", r.Zone, r.Taxonomy, r.Probability)
		}
		return w.Flush()
	case "csv":
		w := csv.NewWriter(out)
		_ = w.Write([]string{"zone", "taxonomy", "probability"})
		for _, r := range rows {
			_ = w.Write([]string{r.Zone, r.Taxonomy, strconv.FormatFloat(r.Probability, 'g', -1, 64)})
		}
		w.Flush()
		return eris.Wrap(w.Error(), "leaves: write csv")
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(rows), "leaves: encode json")
	default:
		return eris.Errorf("leaves: unknown format %q (want table, csv or json)", format)
	}
}

func init() {
	leavesCmd.Flags().StringVar(&leavesMS, "ms", "", "mapping scheme document (required)")
	leavesCmd.Flags().StringVar(&leavesZone, "zone", "", "only list this zone")
	leavesCmd.Flags().BoolVar(&leavesNoModifiers, "no-modifiers", false, "fold modifier levels into their parent")
	leavesCmd.Flags().BoolVar(&leavesPositional, "positional", false, "print the fixed positional encoding")
	leavesCmd.Flags().StringVar(&leavesFormat, "format", "table", "output format: table, csv or json")
	_ = leavesCmd.MarkFlagRequired("ms")
	rootCmd.AddCommand(leavesCmd)
}
