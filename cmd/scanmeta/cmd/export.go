package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/scanmeta/pkg/writer/sqlite"
)

var (
	// Flags for export command
	outputFile  string
	forceExport bool
)

var exportCmd = &cobra.Command{
	Use:   "export [data-file]",
	Short: "Export the scan metadata of one data file to a SQLite file",
	Long: `Write every stored scan of a data file to a standalone SQLite file with
one column per field and the PSI-MS accession next to every term.

The data file is given by id, UUID or name (the newest registration wins).

Examples:
  scanmeta export run01.mzML --out run01.scans.sqlite`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&outputFile, "out", "o", "", "Output SQLite file (required)")
	exportCmd.Flags().BoolVar(&forceExport, "force", false, "Overwrite an existing output file")
	exportCmd.MarkFlagRequired("out")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if _, err := os.Stat(outputFile); err == nil {
		if !forceExport {
			return fmt.Errorf("output file already exists: %s (use --force to overwrite)", outputFile)
		}
		if err := os.Remove(outputFile); err != nil {
			return fmt.Errorf("failed to remove existing output file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check output file: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	file, err := st.FindDataFile(ctx, args[0])
	if err != nil {
		return err
	}

	scans, err := st.ListScans(ctx, file.ID)
	if err != nil {
		return err
	}

	writer, err := sqlite.NewWriter(outputFile, file)
	if err != nil {
		return fmt.Errorf("failed to create output database: %w", err)
	}

	for i := range scans {
		if err := writer.WriteScan(&scans[i]); err != nil {
			if abortErr := writer.Abort(); abortErr != nil {
				log.Warn("failed to abort export", zap.Error(abortErr))
			}
			os.Remove(outputFile)
			return fmt.Errorf("failed to write scan %d: %w", scans[i].ScanNumber, err)
		}
	}

	if err := writer.Finalize(); err != nil {
		os.Remove(outputFile)
		return fmt.Errorf("failed to finalize database: %w", err)
	}

	log.Info("export complete", zap.String("data_file", file.Name), zap.Int("scans", len(scans)))
	fmt.Printf("Exported %d scans of %s to %s\n", len(scans), file.Name, outputFile)
	return nil
}
