// Package sqlite exports the scan metadata of one data file to a standalone
// SQLite file with one column per field.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/scanmeta/pkg/core"
	"github.com/ChrisMcGann/scanmeta/pkg/cv"
)

const (
	// Export schema version recorded in HeaderTable
	schemaVersion = 1
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
)

// ErrFinalized is returned when writing to an export that has been finalized.
var ErrFinalized = errors.New("export already finalized")

// Writer handles writing scan metadata to SQLite export files
type Writer struct {
	db         *sql.DB
	tx         *sql.Tx
	outputPath string
	source     *core.DataFile
	scanStmt   *sql.Stmt
	scanID     int
	finalized  bool
}

// NewWriter creates a new export for the scans of source. All rows are
// written in one transaction that Finalize commits.
func NewWriter(outputPath string, source *core.DataFile) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		source:     source,
		scanID:     1,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the export schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ScanMetadataTable (
		ScanId INTEGER PRIMARY KEY,
		ScanNumber INTEGER NOT NULL UNIQUE,
		MsLevel INTEGER NOT NULL,
		SpectrumRepresentation TEXT NOT NULL,
		SpectrumRepresentationAccession TEXT,
		MassSpectrumType TEXT NOT NULL,
		MassSpectrumTypeAccession TEXT,
		MassAnalyzerType TEXT NOT NULL,
		MassAnalyzerAccession TEXT,
		ScanPolarity TEXT NOT NULL,
		ScanPolarityAccession TEXT,
		ScanStartTime DOUBLE,
		ScanWindowLowerLimit DOUBLE,
		ScanWindowUpperLimit DOUBLE,
		FilterString TEXT,
		TotalIonCurrent DOUBLE,
		IonInjectionTime DOUBLE,
		NativeId TEXT,
		PrecursorScanNumber INTEGER,
		SelectedIonMz DOUBLE,
		SelectedIonChargeStateGuess INTEGER,
		SelectedIonIntensity DOUBLE,
		ExperimentalPrecursorMonoisotopicMz DOUBLE,
		IsolationWindowTargetMz DOUBLE,
		IsolationWindowLowerOffset DOUBLE,
		IsolationWindowUpperOffset DOUBLE,
		DissociationMethod TEXT,
		DissociationMethodAccession TEXT,
		NormalizedCollisionEnergy DOUBLE
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		SourceName TEXT,
		SourceUUID TEXT,
		SourceFormat TEXT,
		ScanCount INTEGER
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements opens the export transaction and prepares the insert
func (w *Writer) prepareStatements() error {
	var err error

	w.tx, err = w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	w.scanStmt, err = w.tx.Prepare(`
		INSERT INTO ScanMetadataTable (
			ScanId, ScanNumber, MsLevel,
			SpectrumRepresentation, SpectrumRepresentationAccession,
			MassSpectrumType, MassSpectrumTypeAccession,
			MassAnalyzerType, MassAnalyzerAccession,
			ScanPolarity, ScanPolarityAccession,
			ScanStartTime, ScanWindowLowerLimit, ScanWindowUpperLimit,
			FilterString, TotalIonCurrent, IonInjectionTime, NativeId,
			PrecursorScanNumber, SelectedIonMz, SelectedIonChargeStateGuess,
			SelectedIonIntensity, ExperimentalPrecursorMonoisotopicMz,
			IsolationWindowTargetMz, IsolationWindowLowerOffset, IsolationWindowUpperOffset,
			DissociationMethod, DissociationMethodAccession, NormalizedCollisionEnergy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		w.tx.Rollback()
		return fmt.Errorf("failed to prepare scan statement: %w", err)
	}

	return nil
}

// WriteScan writes a single scan to the export
func (w *Writer) WriteScan(m *core.ScanMetadata) error {
	if w.finalized {
		return ErrFinalized
	}

	var dissociation, dissociationAccession any
	if m.DissociationMethod != nil {
		dissociation = string(*m.DissociationMethod)
		dissociationAccession = accession(m.DissociationMethod.Term())
	}

	_, err := w.scanStmt.Exec(
		w.scanID,                                         // ScanId
		m.ScanNumber,                                     // ScanNumber
		m.MsLevel,                                        // MsLevel
		string(m.SpectrumRepresentation),                 // SpectrumRepresentation
		accession(m.SpectrumRepresentation.Term()),       // SpectrumRepresentationAccession
		string(m.MassSpectrumType),                       // MassSpectrumType
		accession(m.MassSpectrumType.Term()),             // MassSpectrumTypeAccession
		string(m.MassAnalyzerType),                       // MassAnalyzerType
		accession(m.MassAnalyzerType.Term()),             // MassAnalyzerAccession
		string(m.ScanPolarity),                           // ScanPolarity
		accession(m.ScanPolarity.Term()),                 // ScanPolarityAccession
		nullFloat(m.ScanStartTime),                       // ScanStartTime
		nullFloat(m.ScanWindowLowerLimit),                // ScanWindowLowerLimit
		nullFloat(m.ScanWindowUpperLimit),                // ScanWindowUpperLimit
		nullable(m.FilterString),                         // FilterString
		nullFloat(m.TotalIonCurrent),                     // TotalIonCurrent
		nullFloat(m.IonInjectionTime),                    // IonInjectionTime
		nullable(m.NativeID),                             // NativeId
		nullable(m.PrecursorScanNumber),                  // PrecursorScanNumber
		nullFloat(m.SelectedIonMz),                       // SelectedIonMz
		nullable(m.SelectedIonChargeStateGuess),          // SelectedIonChargeStateGuess
		nullFloat(m.SelectedIonIntensity),                // SelectedIonIntensity
		nullFloat(m.ExperimentalPrecursorMonoisotopicMz), // ExperimentalPrecursorMonoisotopicMz
		nullFloat(m.IsolationWindowTargetMz),             // IsolationWindowTargetMz
		nullFloat(m.IsolationWindowLowerOffset),          // IsolationWindowLowerOffset
		nullFloat(m.IsolationWindowUpperOffset),          // IsolationWindowUpperOffset
		dissociation,                                     // DissociationMethod
		dissociationAccession,                            // DissociationMethodAccession
		nullFloat(m.NormalizedCollisionEnergy),           // NormalizedCollisionEnergy
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan %d: %w", m.ScanNumber, err)
	}

	w.scanID++
	return nil
}

// nullable binds absent values as NULL
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

// nullFloat widens a stored value for a DOUBLE column, or NULL when absent
func nullFloat(v *float32) any {
	if v == nil {
		return nil
	}
	return float64(*v)
}

// accession returns a term's PSI-MS accession, or NULL for unknown terms
func accession(term cv.Term, ok bool) any {
	if !ok {
		return nil
	}
	return term.Accession
}

// Finalize writes the header table, commits and closes the database. It is
// safe to call more than once.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	w.finalized = true

	var name, uuid, format string
	if w.source != nil {
		name, uuid, format = w.source.Name, w.source.UUID, w.source.Format
	}

	// Write HeaderTable
	_, err := w.tx.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, SourceName, SourceUUID, SourceFormat, ScanCount)
		VALUES (?, ?, ?, ?, ?, ?)
	`, schemaVersion, time.Now().Format(headerDateFormat), name, uuid, format, w.scanID-1)
	if err != nil {
		w.abort()
		return fmt.Errorf("failed to insert header: %w", err)
	}

	// Close prepared statement
	if w.scanStmt != nil {
		w.scanStmt.Close()
	}

	if err := w.tx.Commit(); err != nil {
		w.db.Close()
		return fmt.Errorf("failed to commit export: %w", err)
	}

	// Close database
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Abort discards everything written so far and closes the database.
func (w *Writer) Abort() error {
	if w.finalized {
		return nil
	}
	w.finalized = true
	return w.abort()
}

func (w *Writer) abort() error {
	if w.scanStmt != nil {
		w.scanStmt.Close()
	}
	rollbackErr := w.tx.Rollback()
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	if rollbackErr != nil {
		return fmt.Errorf("failed to roll back export: %w", rollbackErr)
	}
	return nil
}

// Close closes the database connection (alias for Finalize)
func (w *Writer) Close() error {
	return w.Finalize()
}
