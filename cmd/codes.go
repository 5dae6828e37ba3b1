package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/scheme-cli/internal/taxonomy"
)

var (
	codesAttribute string
	codesParent    string
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "List the codes selectable for an attribute",
	Long:  "Lists an attribute's codes. With --parent, only the codes the dependency rules allow under that parent code are listed.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		codec, err := loadCodec()
		if err != nil {
			return err
		}
		schema := codec.Schema()
		if schema.AttributeByName(codesAttribute) == nil {
			return eris.Errorf("codes: unknown attribute %q", codesAttribute)
		}
		var parent *taxonomy.Code
		if codesParent != "" {
			if parent = schema.CodeByName(codesParent); parent == nil {
				return eris.Errorf("codes: unknown parent code %q", codesParent)
			}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "CODE\tDESCRIPTION")
		for c := range codec.CodesByAttribute(codesAttribute, parent) {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", c.Value, c.Description)
		}
		return w.Flush()
	},
}

func init() {
	codesCmd.Flags().StringVar(&codesAttribute, "attribute", "", "attribute name (required)")
	codesCmd.Flags().StringVar(&codesParent, "parent", "", "parent code constraining the list")
	_ = codesCmd.MarkFlagRequired("attribute")
	rootCmd.AddCommand(codesCmd)
}
