package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/scheme-cli/internal/scheme"
)

var validateMS string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every zone tree of a mapping scheme is a valid distribution",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ms, err := loadScheme(validateMS)
		if err != nil {
			return err
		}
		err = ms.Validate()
		var ve *scheme.ValidationError
		if errors.As(err, &ve) {
			for _, p := range ve.Problems {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
			}
			return err
		}
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d zones valid\n", validateMS, len(ms.Zones()))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateMS, "ms", "", "mapping scheme document (required)")
	_ = validateCmd.MarkFlagRequired("ms")
	rootCmd.AddCommand(validateCmd)
}
