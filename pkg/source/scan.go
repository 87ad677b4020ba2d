// Package source defines the acquisition-side scan shape that the metadata
// mapper consumes. Readers produce it; nothing in this package knows about
// the controlled vocabulary or persistence.
package source

import (
	"errors"
	"fmt"
	"strings"
)

// NoPrecursor is the precursor reference reported for scans that were not
// selected from an earlier scan.
const NoPrecursor = -1

// ErrInvalidScan is returned when a scan violates the reader contract.
var ErrInvalidScan = errors.New("invalid source scan")

// Scan is one acquisition event as reported by the acquisition library.
// Physical quantities use the library's units: retention time in minutes,
// injection time in milliseconds, masses in m/z.
type Scan struct {
	OneBasedScanNumber int
	MsOrder            int
	IsCentroid         bool
	Polarity           Polarity
	MzAnalyzer         MzAnalyzerType

	RetentionTime   *float64
	ScanWindowLow   *float64
	ScanWindowHigh  *float64
	ScanFilter      string
	TotalIonCurrent *float64
	InjectionTime   *float64
	NativeID        string

	// Precursor selection (MSn only)
	SelectedIonMz                  *float64
	SelectedIonChargeStateGuess    *int
	SelectedIonIntensity           *float64
	SelectedIonMonoisotopicGuessMz *float64
	IsolationMz                    *float64
	IsolationWidth                 *float64
	DissociationType               DissociationType
	OneBasedPrecursorScanNumber    int

	// HcdEnergy is the free-text activation description. Some vendors put
	// the normalized collision energy here, others put anything at all.
	HcdEnergy string

	// Spectrum is the peak list. It is never persisted with the metadata.
	Spectrum *Spectrum
}

// HasPrecursor reports whether the scan references a precursor scan.
func (s *Scan) HasPrecursor() bool {
	return s.OneBasedPrecursorScanNumber >= 1
}

// Validate checks the fields a reader must always provide.
func (s *Scan) Validate() error {
	var errs []string

	if s.OneBasedScanNumber < 1 {
		errs = append(errs, fmt.Sprintf("scan number must be positive, got %d", s.OneBasedScanNumber))
	}
	if s.MsOrder < 1 {
		errs = append(errs, fmt.Sprintf("ms order must be positive, got %d", s.MsOrder))
	}
	if s.Spectrum != nil && !s.Spectrum.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidScan, strings.Join(errs, "; "))
	}
	return nil
}
