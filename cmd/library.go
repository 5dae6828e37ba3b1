package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/scheme-cli/internal/store"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the mapping scheme library",
	Long:  "Stores mapping schemes in a SQLite library keyed by REGION/TYPE/NAME.",
}

var (
	librarySaveMS      string
	librarySaveSource  string
	librarySaveQuality string
	librarySaveNotes   string
	libraryShowOut     string
)

// -- library save --

var librarySaveCmd = &cobra.Command{
	Use:   "save <REGION/TYPE/NAME>",
	Short: "Store a mapping scheme document, replacing any entry with the same key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		region, typ, name, err := store.ParseKey(args[0])
		if err != nil {
			return err
		}

		// round-trip through the codec so only readable schemes are stored
		ms, err := loadScheme(librarySaveMS)
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

		entry := &store.Entry{
			Region:  region,
			Type:    typ,
			Name:    name,
			Source:  librarySaveSource,
			Quality: librarySaveQuality,
			Notes:   librarySaveNotes,
			XML:     doc,
		}
		if err := st.SaveEntry(ctx, entry); err != nil {
			return eris.Wrap(err, "library save")
		}
		zap.L().Info("library: saved", zap.String("key", args[0]), zap.String("id", entry.ID))
		return nil
	},
}

// -- library list --

var libraryListCmd = &cobra.Command{
	Use:   "list [REGION [TYPE]]",
	Short: "List regions, the types of a region, or the names of a region and type",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var items []string
		switch len(args) {
		case 0:
			items, err = st.ListRegions(ctx)
		case 1:
			items, err = st.ListTypes(ctx, args[0])
		default:
			items, err = st.ListNames(ctx, args[0], args[1])
		}
		if err != nil {
			return eris.Wrap(err, "library list")
		}
		if len(items) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No entries found.")
			return nil
		}
		for _, it := range items {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), it)
		}
		return nil
	},
}

// -- library show --

var libraryShowCmd = &cobra.Command{
	Use:   "show <REGION/TYPE/NAME>",
	Short: "Show a library entry, or write its document with --out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		region, typ, name, err := store.ParseKey(args[0])
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		entry, err := st.GetEntry(ctx, region, typ, name)
		if err != nil {
			return eris.Wrap(err, "library show")
		}
		if entry == nil {
			return eris.Errorf("library show: no entry %s", args[0])
		}

		if libraryShowOut != "" {
			if err := os.WriteFile(libraryShowOut, []byte(entry.XML), 0o644); err != nil { //nolint:gosec
				return eris.Wrapf(err, "library show: write %s", libraryShowOut)
			}
			return nil
		}
		formatEntry(cmd.OutOrStdout(), entry)
		return nil
	},
}

func formatEntry(out io.Writer, e *store.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "ID:\t%s\n", e.ID)
	_, _ = fmt.Fprintf(w, "Key:\t%s/%s/%s\n", e.Region, e.Type, e.Name)
	_, _ = fmt.Fprintf(w, "Source:\t%s\n", e.Source)
	_, _ = fmt.Fprintf(w, "Quality:\t%s\n", e.Quality)
	_, _ = fmt.Fprintf(w, "Notes:\t%s\n", e.Notes)
	_, _ = fmt.Fprintf(w, "Created:\t%s\n", e.CreatedAt.Format("2006-01-02 15:04"))
	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
	_, _ = io.WriteString(out, e.XML)
}

// -- library delete --

var libraryDeleteCmd = &cobra.Command{
	Use:   "delete <REGION/TYPE/NAME>",
	Short: "Delete a library entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		region, typ, name, err := store.ParseKey(args[0])
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteEntry(ctx, region, typ, name); err != nil {
			return eris.Wrap(err, "library delete")
		}
		zap.L().Info("library: deleted", zap.String("key", args[0]))
		return nil
	},
}

func init() {
	librarySaveCmd.Flags().StringVar(&librarySaveMS, "ms", "", "mapping scheme document (required)")
	librarySaveCmd.Flags().StringVar(&librarySaveSource, "source", "", "where the scheme's data came from")
	librarySaveCmd.Flags().StringVar(&librarySaveQuality, "quality", "", "data quality note")
	librarySaveCmd.Flags().StringVar(&librarySaveNotes, "notes", "", "free-form notes")
	_ = librarySaveCmd.MarkFlagRequired("ms")

	libraryShowCmd.Flags().StringVar(&libraryShowOut, "out", "", "write the scheme document to this file")

	libraryCmd.AddCommand(librarySaveCmd, libraryListCmd, libraryShowCmd, libraryDeleteCmd)
	rootCmd.AddCommand(libraryCmd)
}
