package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var zoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Manage the zones of a mapping scheme",
}

var (
	zoneMS   string
	zoneFrom string
	zoneTo   string
)

// -- zone rename --

var zoneRenameCmd = &cobra.Command{
	Use:   "rename",
	Short: "Rename a zone, refusing names already in use",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ms, err := loadScheme(zoneMS)
		if err != nil {
			return err
		}
		if err := ms.RenameZone(zoneFrom, zoneTo); err != nil {
			return err
		}
		if err := ms.Save(zoneMS); err != nil {
			return err
		}
		zap.L().Info("zone: renamed", zap.String("from", zoneFrom), zap.String("to", zoneTo))
		return nil
	},
}

func init() {
	zoneRenameCmd.Flags().StringVar(&zoneMS, "ms", "", "mapping scheme document, rewritten in place (required)")
	zoneRenameCmd.Flags().StringVar(&zoneFrom, "from", "", "current zone name (required)")
	zoneRenameCmd.Flags().StringVar(&zoneTo, "to", "", "new zone name (required)")
	for _, f := range []string{"ms", "from", "to"} {
		_ = zoneRenameCmd.MarkFlagRequired(f)
	}
	zoneCmd.AddCommand(zoneRenameCmd)
	rootCmd.AddCommand(zoneCmd)
}
