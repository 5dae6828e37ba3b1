package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/scheme-cli/internal/store"
	"github.com/sells-group/scheme-cli/internal/survey"
)

var (
	buildSurvey  string
	buildOut     string
	buildLibrary string
	buildSource  string
	buildQuality string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a mapping scheme from a survey file",
	Long:  "Reads a CSV or XLSX survey, ingests every record into its zone's statistics tree, finalizes the trees and writes the mapping scheme document. Records that cannot be classified are reported and skipped.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		codec, err := loadCodec()
		if err != nil {
			return err
		}

		ms, report, err := survey.BuildFile(ctx, surveySource(buildSurvey, cfg.Survey), codec,
			surveyOptions(cfg.Survey, cfg.Ranges), treeSetup(cfg.Tree))
		if err != nil {
			return eris.Wrap(err, "build")
		}
		formatReport(cmd.ErrOrStderr(), report)

		if ms.IsEmpty() {
			return eris.Errorf("build: no records accepted from %s", buildSurvey)
		}
		if err := ms.Save(buildOut); err != nil {
			return err
		}

		if buildLibrary != "" {
			region, typ, name, err := store.ParseKey(buildLibrary)
			if err != nil {
				return err
			}
			doc, err := ms.ToXML()
			if err != nil {
				return err
			}
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			entry := &store.Entry{Region: region, Type: typ, Name: name, Source: buildSource, Quality: buildQuality, XML: doc}
			if err := st.SaveEntry(ctx, entry); err != nil {
				return eris.Wrap(err, "build: save to library")
			}
			zap.L().Info("build: saved to library", zap.String("key", buildLibrary), zap.String("id", entry.ID))
		}
		return nil
	},
}

func formatReport(out io.Writer, r survey.Report) {
	_, _ = fmt.Fprintf(out, "accepted %d, rejected %d, zones %d\n", r.Accepted, len(r.Rejected), len(r.Zones))
	for _, rej := range r.Rejected {
		_, _ = fmt.Fprintf(out, "  %s\n", rej)
	}
}

func init() {
	buildCmd.Flags().StringVar(&buildSurvey, "survey", "", "survey file, .csv or .xlsx (required)")
	buildCmd.Flags().StringVar(&buildOut, "out", "", "mapping scheme document to write (required)")
	buildCmd.Flags().StringVar(&buildLibrary, "library", "", "also store the scheme in the library as REGION/TYPE/NAME")
	buildCmd.Flags().StringVar(&buildSource, "source", "", "library entry source description")
	buildCmd.Flags().StringVar(&buildQuality, "quality", "", "library entry data quality")
	_ = buildCmd.MarkFlagRequired("survey")
	_ = buildCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(buildCmd)
}
