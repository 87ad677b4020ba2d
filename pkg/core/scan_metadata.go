// Package core provides the persisted scan metadata entity and the mapper that
// derives it from a source scan.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/ChrisMcGann/scanmeta/pkg/cv"
)

// DataFile is the owning record for every scan ingested from one acquisition
// file. Deleting it deletes its scans.
type DataFile struct {
	ID        uint      `gorm:"primaryKey"`
	UUID      string    `gorm:"type:varchar(36);uniqueIndex;not null"`
	Name      string    `gorm:"type:varchar(255);not null;index"`
	Path      string    `gorm:"type:varchar(1000)"`
	Format    string    `gorm:"type:varchar(16)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Scans []ScanMetadata `gorm:"foreignKey:DataFileID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM.
func (DataFile) TableName() string {
	return "data_files"
}

// ScanMetadata is the acquisition metadata of one scan. Units are fixed by the
// controlled vocabulary and never stored: times in minutes, injection time in
// milliseconds, collision energy in percent, everything else in m/z.
//
// A nil pointer means not applicable or not measured. Values are set once by
// FromScan; only ID is assigned later, by the persistence layer.
type ScanMetadata struct {
	ID         uint `gorm:"primaryKey"`
	DataFileID uint `gorm:"not null;uniqueIndex:idx_scan_file_number"`

	// Required
	ScanNumber             int                       `gorm:"not null;uniqueIndex:idx_scan_file_number"`
	SpectrumRepresentation cv.SpectrumRepresentation `gorm:"type:varchar(64);not null"`
	MassSpectrumType       cv.MassSpectrumType       `gorm:"type:varchar(64);not null"`
	MsLevel                int                       `gorm:"not null;index"`
	MassAnalyzerType       cv.MassAnalyzerType       `gorm:"type:varchar(100);not null"`
	ScanPolarity           cv.ScanPolarity           `gorm:"type:varchar(32);not null"`

	// Acquisition
	ScanStartTime        *float32
	ScanWindowLowerLimit *float32
	ScanWindowUpperLimit *float32
	FilterString         *string `gorm:"type:varchar(500)"`
	TotalIonCurrent      *float32
	IonInjectionTime     *float32
	NativeID             *string `gorm:"type:varchar(255)"`

	// Precursor (MSn only)
	PrecursorScanNumber                 *int
	SelectedIonMz                       *float32
	SelectedIonChargeStateGuess         *int
	SelectedIonIntensity                *float32
	ExperimentalPrecursorMonoisotopicMz *float32
	IsolationWindowTargetMz             *float32
	IsolationWindowLowerOffset          *float32
	IsolationWindowUpperOffset          *float32
	DissociationMethod                  *cv.DissociationMethodType `gorm:"type:varchar(100)"`
	NormalizedCollisionEnergy           *float32
}

// TableName returns the table name for GORM.
func (ScanMetadata) TableName() string {
	return "scan_metadata"
}

// ValidationError represents an entity that breaks one of its invariants.
type ValidationError struct {
	ScanNumber int
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in scan %d: %s", e.ScanNumber, e.Message)
}

// Validate checks the invariants FromScan guarantees. It exists for entities
// that arrive from elsewhere, such as rows read back from storage.
func (m *ScanMetadata) Validate() error {
	var errs []string

	if m.ScanNumber < 1 {
		errs = append(errs, "scan number must be positive")
	}
	if m.MsLevel < 1 {
		errs = append(errs, "ms level must be positive")
	}
	if !m.SpectrumRepresentation.Valid() {
		errs = append(errs, fmt.Sprintf("unknown spectrum representation %q", m.SpectrumRepresentation))
	}
	if !m.MassSpectrumType.Valid() {
		errs = append(errs, fmt.Sprintf("unknown spectrum type %q", m.MassSpectrumType))
	}
	if !m.MassAnalyzerType.Valid() {
		errs = append(errs, fmt.Sprintf("unknown mass analyzer %q", m.MassAnalyzerType))
	}
	if !m.ScanPolarity.Valid() {
		errs = append(errs, fmt.Sprintf("unknown scan polarity %q", m.ScanPolarity))
	}
	if m.DissociationMethod != nil && !m.DissociationMethod.Valid() {
		errs = append(errs, fmt.Sprintf("unknown dissociation method %q", *m.DissociationMethod))
	}
	if (m.MsLevel == 1) != (m.MassSpectrumType == cv.MS1Spectrum) {
		errs = append(errs, "ms level 1 must coincide with MS1 spectrum")
	}
	if m.PrecursorScanNumber != nil {
		if m.MsLevel <= 1 {
			errs = append(errs, "precursor scan number on an MS1 scan")
		} else if *m.PrecursorScanNumber < 1 {
			errs = append(errs, "precursor scan number must be positive")
		}
	}
	if m.IsolationWindowLowerOffset != nil && m.IsolationWindowUpperOffset != nil &&
		*m.IsolationWindowLowerOffset != -*m.IsolationWindowUpperOffset {
		errs = append(errs, "isolation window offsets must be symmetric")
	}

	if len(errs) > 0 {
		return &ValidationError{
			ScanNumber: m.ScanNumber,
			Message:    strings.Join(errs, "; "),
		}
	}
	return nil
}
