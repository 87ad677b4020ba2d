// Package mgf provides a streaming reader for Mascot Generic Format peak lists
package mgf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/scanmeta/pkg/source"
)

// Options supplies the instrument attributes MGF files do not record.
type Options struct {
	Analyzer     source.MzAnalyzerType
	Dissociation source.DissociationType
}

// Reader provides streaming access to MGF files. Every ion block is reported
// as a centroided MS2 scan without a precursor scan reference.
type Reader struct {
	scanner *bufio.Scanner
	opts    Options
	lineNum int
	blocks  int
	lastNum int
	current *source.Scan
	err     error
}

// NewReader creates a new MGF reader
func NewReader(r io.Reader, opts Options) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &Reader{
		scanner: scanner,
		opts:    opts,
	}
}

// Next advances to the next scan. Returns false when no more scans or error.
func (r *Reader) Next() bool {
	r.current = nil

	scan, err := r.readScan()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.current = scan
	return true
}

// Scan returns the current scan
func (r *Reader) Scan() *source.Scan {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// readScan reads a single BEGIN IONS / END IONS block
func (r *Reader) readScan() (*source.Scan, error) {
	var scan *source.Scan
	scanNumber := 0

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		if line == "" || strings.ContainsAny(line[:1], "#;!/") {
			continue
		}

		if scan == nil {
			// Global parameters before the first block are not used.
			if line == "BEGIN IONS" {
				scan = r.newScan()
			}
			continue
		}

		if line == "END IONS" {
			r.finish(scan, scanNumber)
			return scan, nil
		}

		if isPeakLine(line) {
			peak, err := parsePeak(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			scan.Spectrum.Peaks = append(scan.Spectrum.Peaks, peak)
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected KEY=value or peak, got %q", r.lineNum, line)
		}
		n, err := r.parseParam(scan, strings.ToUpper(strings.TrimSpace(key)), strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		if n > 0 {
			scanNumber = n
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	if scan != nil {
		return nil, fmt.Errorf("line %d: unterminated ion block", r.lineNum)
	}

	return nil, io.EOF
}

func (r *Reader) newScan() *source.Scan {
	return &source.Scan{
		MsOrder:                     2,
		IsCentroid:                  true,
		MzAnalyzer:                  r.opts.Analyzer,
		DissociationType:            r.opts.Dissociation,
		OneBasedPrecursorScanNumber: source.NoPrecursor,
		NativeID:                    fmt.Sprintf("index=%d", r.blocks),
		Spectrum:                    &source.Spectrum{},
	}
}

// finish assigns the scan number: the SCANS value when present, otherwise
// one past the previous block's number.
func (r *Reader) finish(scan *source.Scan, scanNumber int) {
	if scanNumber == 0 {
		scanNumber = r.lastNum + 1
	}
	scan.OneBasedScanNumber = scanNumber
	r.lastNum = scanNumber
	r.blocks++

	if !scan.Spectrum.ArePeaksSorted() {
		scan.Spectrum.SortPeaks()
	}
}

// parseParam applies one KEY=value line and returns the SCANS number if the
// key was SCANS.
func (r *Reader) parseParam(scan *source.Scan, key, value string) (int, error) {
	switch key {
	case "PEPMASS":
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return 0, fmt.Errorf("empty PEPMASS")
		}
		mz, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid PEPMASS m/z: %w", err)
		}
		scan.SelectedIonMz = &mz
		if len(fields) > 1 {
			if intensity, err := strconv.ParseFloat(fields[1], 64); err == nil {
				scan.SelectedIonIntensity = &intensity
			}
		}

	case "CHARGE":
		charge, polarity, err := parseCharge(value)
		if err != nil {
			return 0, err
		}
		scan.SelectedIonChargeStateGuess = &charge
		scan.Polarity = polarity

	case "RTINSECONDS":
		seconds, err := strconv.ParseFloat(firstOfRange(value), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid RTINSECONDS: %w", err)
		}
		minutes := seconds / 60
		scan.RetentionTime = &minutes

	case "SCANS":
		n, err := strconv.Atoi(firstOfRange(value))
		if err != nil || n < 1 {
			return 0, fmt.Errorf("invalid SCANS %q", value)
		}
		return n, nil

	case "COLLISION_ENERGY":
		scan.HcdEnergy = value
	}

	return 0, nil
}

// parseCharge parses "2+", "3-", "2" and "2+ and 3+" (first charge wins).
func parseCharge(value string) (int, source.Polarity, error) {
	first := strings.Fields(strings.ReplaceAll(value, ",", " "))
	if len(first) == 0 {
		return 0, source.PolarityUnknown, fmt.Errorf("empty CHARGE")
	}
	token := first[0]

	polarity := source.PolarityUnknown
	switch {
	case strings.HasSuffix(token, "+"):
		polarity = source.PolarityPositive
		token = strings.TrimSuffix(token, "+")
	case strings.HasSuffix(token, "-"):
		polarity = source.PolarityNegative
		token = strings.TrimSuffix(token, "-")
	case strings.HasPrefix(token, "-"):
		polarity = source.PolarityNegative
		token = strings.TrimPrefix(token, "-")
	}

	charge, err := strconv.Atoi(strings.TrimPrefix(token, "+"))
	if err != nil {
		return 0, source.PolarityUnknown, fmt.Errorf("invalid CHARGE %q", value)
	}
	return charge, polarity, nil
}

func firstOfRange(value string) string {
	if i := strings.IndexAny(value, "-,"); i > 0 {
		return strings.TrimSpace(value[:i])
	}
	return strings.TrimSpace(value)
}

func isPeakLine(line string) bool {
	c := line[0]
	return (c >= '0' && c <= '9') || c == '.'
}

// parsePeak parses a single peak line (format: "mz intensity [charge]")
func parsePeak(line string) (source.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return source.Peak{}, fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return source.Peak{}, fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return source.Peak{}, fmt.Errorf("invalid intensity value: %w", err)
	}

	return source.Peak{MZ: mz, Intensity: intensity}, nil
}
