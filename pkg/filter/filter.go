// Package filter provides scan selection and peak clean-up applied before
// scans are mapped.
package filter

import (
	"fmt"
	"slices"

	"github.com/ChrisMcGann/scanmeta/pkg/source"
)

// Config holds filtering configuration
type Config struct {
	MsLevels            []int   // Keep only these MS levels (nil = all)
	MinRT               float64 // Minimum retention time in minutes (0 = no limit)
	MaxRT               float64 // Maximum retention time in minutes (0 = no limit)
	MinPeaks            int     // Minimum number of non-zero peaks (0 = no limit)
	FillTotalIonCurrent bool    // Sum peak intensities when the source reports no TIC
}

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	if c.MinRT < 0 || c.MaxRT < 0 {
		return fmt.Errorf("retention time limits must be non-negative")
	}
	if c.MaxRT > 0 && c.MinRT > c.MaxRT {
		return fmt.Errorf("minimum retention time %.3f exceeds maximum %.3f", c.MinRT, c.MaxRT)
	}
	if c.MinPeaks < 0 {
		return fmt.Errorf("minimum peak count must be non-negative")
	}
	for _, level := range c.MsLevels {
		if level < 1 {
			return fmt.Errorf("invalid ms level %d", level)
		}
	}
	return nil
}

// Apply removes zero-intensity peaks from the scan's transient spectrum and
// reports whether the scan should be kept. Peaks must already be sorted by
// m/z, as source.Scan.Validate requires.
func (c *Config) Apply(scan *source.Scan) bool {
	if scan.Spectrum != nil {
		RemoveZeroIntensityPeaks(scan.Spectrum)
	}

	if !c.Keep(scan) {
		return false
	}

	if c.FillTotalIonCurrent && scan.TotalIonCurrent == nil && scan.Spectrum != nil {
		tic := scan.Spectrum.TotalIntensity()
		scan.TotalIonCurrent = &tic
	}
	return true
}

// Keep reports whether the scan passes the level, retention time and peak
// count filters. It does not modify the scan.
func (c *Config) Keep(scan *source.Scan) bool {
	if len(c.MsLevels) > 0 && !slices.Contains(c.MsLevels, scan.MsOrder) {
		return false
	}

	// Scans without a retention time cannot be placed in the window; keep them.
	if scan.RetentionTime != nil {
		rt := *scan.RetentionTime
		if c.MinRT > 0 && rt < c.MinRT {
			return false
		}
		if c.MaxRT > 0 && rt > c.MaxRT {
			return false
		}
	}

	if c.MinPeaks > 0 {
		if scan.Spectrum == nil || countNonZero(scan.Spectrum) < c.MinPeaks {
			return false
		}
	}
	return true
}

func countNonZero(spec *source.Spectrum) int {
	n := 0
	for _, peak := range spec.Peaks {
		if peak.Intensity > 0 {
			n++
		}
	}
	return n
}

// RemoveZeroIntensityPeaks removes peaks with zero or negative intensity
func RemoveZeroIntensityPeaks(spec *source.Spectrum) {
	var filtered []source.Peak
	for _, peak := range spec.Peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}
