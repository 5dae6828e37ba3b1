package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <taxonomy-string>...",
	Short: "Decode taxonomy strings into attribute values",
	Long:  "Decodes each string, prints one row per value and the normalized string with every group filled.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codec, err := loadCodec()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, s := range args {
			vals, err := codec.Parse(s)
			if err != nil {
				_ = w.Flush()
				return eris.Wrapf(err, "parse %q", s)
			}
			_, _ = fmt.Fprintf(w, "%s\n", s)
			_, _ = fmt.Fprintln(w, "  GROUP\tATTRIBUTE\tVALUE\tKIND")
			for _, v := range vals {
				attr := ""
				if a := v.Attribute(); a != nil {
					attr = a.Name
				}
				_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", v.GroupName(), attr, v.String(), v.Kind)
			}
			_, _ = fmt.Fprintf(w, "  normalized: %s\n", codec.ToString(vals, true, true))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
