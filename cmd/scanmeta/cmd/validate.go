package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/scanmeta/pkg/core"
	"github.com/ChrisMcGann/scanmeta/pkg/ingest"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check that every scan of an input file can be mapped",
	Long: `Read and map every scan of an mzML or MGF file without touching the
database. Scans that cannot be mapped are listed on stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	addReaderFlags(validateCmd)
}

// discardStore checks mapped entities and drops them.
type discardStore struct{}

func (discardStore) SaveScans(_ context.Context, scans []*core.ScanMetadata) error {
	for _, m := range scans {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	inputFile := args[0]

	format, err := detectFormat(inputFile, inputFormat)
	if err != nil {
		return err
	}

	inFile, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer inFile.Close()

	reader, err := newScanReader(inFile, format)
	if err != nil {
		return err
	}

	opts, err := settings.IngestOptions()
	if err != nil {
		return err
	}
	opts.Filter = nil
	opts.OnError = ingest.Skip
	opts.Logger = log

	result, err := ingest.Run(cmd.Context(), reader, discardStore{}, 0, opts)
	if err != nil {
		return fmt.Errorf("validation of %s failed: %w", inputFile, err)
	}

	for _, f := range result.Failures {
		fmt.Fprintf(os.Stderr, "scan %d: %v\n", f.ScanNumber, f.Err)
	}
	fmt.Printf("%s: %d scans, %d mappable\n", inputFile, result.Read, result.Stored)

	if skipped := result.Skipped(); skipped > 0 {
		return fmt.Errorf("%d of %d scans cannot be mapped", skipped, result.Read)
	}
	return nil
}
