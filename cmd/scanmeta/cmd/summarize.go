package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/scanmeta/pkg/store"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [data-file]",
	Short: "Summarize the stored scans of a data file",
	Long:  `Print scan counts per MS level, the retention time range and the analyzers and dissociation methods seen, as YAML.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		file, err := st.FindDataFile(ctx, args[0])
		if err != nil {
			return err
		}

		summary, err := st.Summarize(ctx, file)
		if err != nil {
			return err
		}

		return writeSummary(summary)
	},
}

func writeSummary(summary *store.Summary) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return enc.Close()
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered data files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		files, err := st.ListDataFiles(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUUID\tNAME\tFORMAT\tCREATED")
		for _, f := range files {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", f.ID, f.UUID, f.Name, f.Format, f.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [data-file]",
	Short: "Delete a data file and all of its scan metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		file, err := st.FindDataFile(ctx, args[0])
		if err != nil {
			return err
		}

		if err := st.DeleteDataFile(ctx, file.ID); err != nil {
			return err
		}

		fmt.Printf("Deleted %s (%s)\n", file.Name, file.UUID)
		return nil
	},
}
