package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/scanmeta/pkg/cv"
	"github.com/ChrisMcGann/scanmeta/pkg/source"
)

// FromScan builds the metadata entity for one source scan owned by the given
// data file. It fails only when the analyzer or dissociation method has no
// controlled-vocabulary mapping, and never modifies scan.
//
// The spectrum type is MS1Spectrum or MSnSpectrum; DDA, DIA, SRM and SIM
// acquisitions cannot be told apart from the source scan alone.
func FromScan(dataFileID uint, scan *source.Scan) (*ScanMetadata, error) {
	analyzer, err := cv.MassAnalyzerFromSource(scan.MzAnalyzer)
	if err != nil {
		return nil, fmt.Errorf("scan %d: %w", scan.OneBasedScanNumber, err)
	}

	var dissociation *cv.DissociationMethodType
	if scan.MsOrder > 1 {
		dissociation, err = cv.DissociationMethodFromSource(scan.DissociationType)
		if err != nil {
			return nil, fmt.Errorf("scan %d: %w", scan.OneBasedScanNumber, err)
		}
	}

	m := &ScanMetadata{
		DataFileID:             dataFileID,
		ScanNumber:             scan.OneBasedScanNumber,
		MsLevel:                scan.MsOrder,
		MassSpectrumType:       spectrumType(scan.MsOrder),
		SpectrumRepresentation: representation(scan.IsCentroid),
		ScanPolarity:           cv.PolarityFromSource(scan.Polarity),
		MassAnalyzerType:       analyzer,

		ScanStartTime:        narrow(scan.RetentionTime),
		ScanWindowLowerLimit: narrow(scan.ScanWindowLow),
		ScanWindowUpperLimit: narrow(scan.ScanWindowHigh),
		FilterString:         optionalString(scan.ScanFilter),
		TotalIonCurrent:      narrow(scan.TotalIonCurrent),
		IonInjectionTime:     narrow(scan.InjectionTime),
		NativeID:             optionalString(scan.NativeID),

		PrecursorScanNumber:                 precursorScanNumber(scan),
		SelectedIonMz:                       narrow(scan.SelectedIonMz),
		SelectedIonChargeStateGuess:         copyInt(scan.SelectedIonChargeStateGuess),
		SelectedIonIntensity:                narrow(scan.SelectedIonIntensity),
		ExperimentalPrecursorMonoisotopicMz: narrow(scan.SelectedIonMonoisotopicGuessMz),
		IsolationWindowTargetMz:             narrow(scan.IsolationMz),
		DissociationMethod:                  dissociation,
		NormalizedCollisionEnergy:           parseCollisionEnergy(scan.HcdEnergy),
	}

	if scan.IsolationWidth != nil {
		upper := float32(*scan.IsolationWidth / 2)
		lower := -upper
		m.IsolationWindowUpperOffset = &upper
		m.IsolationWindowLowerOffset = &lower
	}

	return m, nil
}

func spectrumType(msOrder int) cv.MassSpectrumType {
	if msOrder == 1 {
		return cv.MS1Spectrum
	}
	return cv.MSnSpectrum
}

func representation(centroid bool) cv.SpectrumRepresentation {
	if centroid {
		return cv.Centroid
	}
	return cv.Profile
}

// precursorScanNumber drops the source's "no precursor" sentinel, and any
// reference on an MS1 scan.
func precursorScanNumber(scan *source.Scan) *int {
	if scan.MsOrder <= 1 || !scan.HasPrecursor() {
		return nil
	}
	n := scan.OneBasedPrecursorScanNumber
	return &n
}

// parseCollisionEnergy reads the activation description as a percentage.
// Anything that is not a finite number yields nil.
func parseCollisionEnergy(desc string) *float32 {
	s := strings.TrimSuffix(strings.TrimSpace(desc), "%")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return narrow(&v)
}

// narrow converts to float32 with round-to-nearest-even, keeping nil.
func narrow(v *float64) *float32 {
	if v == nil {
		return nil
	}
	f := float32(*v)
	return &f
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
