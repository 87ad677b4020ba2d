package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/scanmeta/pkg/ingest"
	"github.com/ChrisMcGann/scanmeta/pkg/reader/mgf"
	"github.com/ChrisMcGann/scanmeta/pkg/reader/mzml"
)

const (
	formatMzML = "mzML"
	formatMGF  = "mgf"
)

var (
	// Flags for convert and validate commands
	inputFormat  string
	dataFileName string
)

var convertCmd = &cobra.Command{
	Use:   "convert [file]",
	Short: "Extract scan metadata from a raw data export into the database",
	Long: `Read every scan of an mzML or MGF file, map it to PSI-MS terms and store
one metadata record per scan under a new data file entry.

If the run fails the data file and everything stored for it are removed.

Examples:
  # Convert an mzML file into ./scanmeta.db
  scanmeta convert run01.mzML

  # Keep only MS2 scans between 10 and 90 minutes, stop at the first bad scan
  scanmeta convert run01.mzML --ms-levels 2 --min-rt 10 --max-rt 90 --on-error abort

  # MGF files carry no instrument description; without --analyzer and
  # --dissociation (or reader settings) their scans cannot be mapped
  scanmeta convert run01.mgf --analyzer IT --dissociation CID`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	addReaderFlags(convertCmd)
	flags := convertCmd.Flags()
	flags.StringVar(&dataFileName, "name", "", "Data file name (default: input file name)")
	flags.Int("workers", 0, "Number of concurrent scan mappers")
	flags.Int("batch-size", 0, "Scans per transaction")
	flags.String("on-error", "", "Per-scan error policy: skip or abort")
	flags.IntSlice("ms-levels", nil, "Keep only these MS levels (e.g. 1,2)")
	flags.Float64("min-rt", 0, "Minimum retention time in minutes (0 = no limit)")
	flags.Float64("max-rt", 0, "Maximum retention time in minutes (0 = no limit)")
	flags.Int("min-peaks", 0, "Minimum number of non-zero peaks (0 = no limit)")
	flags.Bool("fill-tic", false, "Sum peak intensities when the file reports no total ion current")
}

// addReaderFlags adds the input format and instrument attribute flags.
func addReaderFlags(c *cobra.Command) {
	flags := c.Flags()
	flags.StringVarP(&inputFormat, "from", "f", "", "Input format: mzml or mgf (auto-detect if not specified)")
	flags.String("analyzer", "", "Mass analyzer for MGF input (e.g. Orbitrap, IT, TOF)")
	flags.String("dissociation", "", "Dissociation type for MGF input (e.g. HCD, CID, ETD)")
}

// detectFormat returns the canonical format name from the flag or, when the
// flag is empty, the file extension.
func detectFormat(path, format string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
		if format == "" {
			return "", fmt.Errorf("cannot auto-detect format of %s, please specify --from", path)
		}
	}

	switch strings.ToLower(format) {
	case "mzml":
		return formatMzML, nil
	case "mgf":
		return formatMGF, nil
	default:
		return "", fmt.Errorf("invalid input format '%s', must be mzml or mgf", format)
	}
}

// newScanReader creates the streaming reader for format.
func newScanReader(r io.Reader, format string) (ingest.ScanReader, error) {
	switch format {
	case formatMzML:
		return mzml.NewReader(r), nil
	case formatMGF:
		analyzer, dissociation, err := settings.ReaderAttributes()
		if err != nil {
			return nil, err
		}
		return mgf.NewReader(r, mgf.Options{Analyzer: analyzer, Dissociation: dissociation}), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
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
	opts.Logger = log

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	name := dataFileName
	if name == "" {
		name = filepath.Base(inputFile)
	}
	path, err := filepath.Abs(inputFile)
	if err != nil {
		path = inputFile
	}

	file, err := st.RegisterDataFile(ctx, name, path, format)
	if err != nil {
		return err
	}
	log.Info("converting", zap.String("input", inputFile), zap.String("format", format),
		zap.String("uuid", file.UUID))

	result, err := ingest.Run(ctx, reader, st, file.ID, opts)
	if err != nil {
		// The context may already be cancelled; clean up regardless.
		if delErr := st.DeleteDataFile(context.Background(), file.ID); delErr != nil {
			log.Error("failed to remove partial data file", zap.Uint("id", file.ID), zap.Error(delErr))
		}
		return fmt.Errorf("conversion of %s failed: %w", inputFile, err)
	}

	fmt.Printf("Conversion complete!\n")
	fmt.Printf("Data file: %s (%s)\n", file.Name, file.UUID)
	fmt.Printf("Read: %d scans\n", result.Read)
	fmt.Printf("Stored: %d scans\n", result.Stored)
	if result.Filtered > 0 {
		fmt.Printf("Filtered: %d scans\n", result.Filtered)
	}
	if skipped := result.Skipped(); skipped > 0 {
		fmt.Printf("Skipped: %d scans (see warnings)\n", skipped)
	}

	return nil
}
