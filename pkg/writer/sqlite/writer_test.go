package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/scanmeta/pkg/core"
	"github.com/ChrisMcGann/scanmeta/pkg/cv"
)

func f32(v float32) *float32 { return &v }
func intp(v int) *int        { return &v }
func str(v string) *string   { return &v }

func testScans() []*core.ScanMetadata {
	cid := cv.CollisionInducedDissociation
	return []*core.ScanMetadata{
		{
			ScanNumber:             1,
			SpectrumRepresentation: cv.Profile,
			MassSpectrumType:       cv.MS1Spectrum,
			MsLevel:                1,
			MassAnalyzerType:       cv.Orbitrap,
			ScanPolarity:           cv.PositiveScan,
			ScanStartTime:          f32(0.5),
			FilterString:           str("FTMS + p NSI Full ms [350.0000-1800.0000]"),
			NativeID:               str("controllerType=0 controllerNumber=1 scan=1"),
		},
		{
			ScanNumber:                 2,
			SpectrumRepresentation:     cv.Centroid,
			MassSpectrumType:           cv.MSnSpectrum,
			MsLevel:                    2,
			MassAnalyzerType:           cv.LinearIonTrap,
			ScanPolarity:               cv.NegativeScan,
			ScanStartTime:              f32(0.75),
			PrecursorScanNumber:        intp(1),
			SelectedIonMz:              f32(445.25),
			IsolationWindowLowerOffset: f32(-1),
			IsolationWindowUpperOffset: f32(1),
			DissociationMethod:         &cid,
			NormalizedCollisionEnergy:  f32(35),
		},
	}
}

func TestWriterExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.sqlite")
	source := &core.DataFile{Name: "run01.mzML", UUID: "0b5f2f6e-8d3c-4a59-9c39-1f1a2b3c4d5e", Format: "mzML"}

	w, err := NewWriter(path, source)
	require.NoError(t, err)
	for _, scan := range testScans() {
		require.NoError(t, w.WriteScan(scan))
	}
	require.NoError(t, w.Finalize())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM ScanMetadataTable").Scan(&count))
	assert.Equal(t, 2, count)

	var (
		analyzer, analyzerAcc, polarityAcc string
		precursor                          sql.NullInt64
		dissociation, dissociationAcc      sql.NullString
		filter                             sql.NullString
		rt                                 sql.NullFloat64
	)
	row := db.QueryRow(`SELECT MassAnalyzerType, MassAnalyzerAccession, ScanPolarityAccession,
		PrecursorScanNumber, DissociationMethod, DissociationMethodAccession, FilterString, ScanStartTime
		FROM ScanMetadataTable WHERE ScanNumber = 1`)
	require.NoError(t, row.Scan(&analyzer, &analyzerAcc, &polarityAcc, &precursor, &dissociation, &dissociationAcc, &filter, &rt))
	assert.Equal(t, "orbitrap", analyzer)
	assert.Equal(t, "MS:1000484", analyzerAcc)
	assert.Equal(t, "MS:1000130", polarityAcc)
	assert.False(t, precursor.Valid)
	assert.False(t, dissociation.Valid)
	assert.False(t, dissociationAcc.Valid)
	assert.True(t, filter.Valid)
	assert.Equal(t, 0.5, rt.Float64)

	row = db.QueryRow(`SELECT PrecursorScanNumber, DissociationMethod, DissociationMethodAccession,
		IsolationWindowLowerOffset, NormalizedCollisionEnergy, FilterString
		FROM ScanMetadataTable WHERE ScanNumber = 2`)
	var lower, nce sql.NullFloat64
	require.NoError(t, row.Scan(&precursor, &dissociation, &dissociationAcc, &lower, &nce, &filter))
	assert.Equal(t, int64(1), precursor.Int64)
	assert.Equal(t, "collision-induced dissociation", dissociation.String)
	assert.Equal(t, "MS:1000133", dissociationAcc.String)
	assert.Equal(t, -1.0, lower.Float64)
	assert.Equal(t, 35.0, nce.Float64)
	assert.False(t, filter.Valid)

	var (
		version        int
		name, uuid     string
		format         string
		headerScanRows int
	)
	require.NoError(t, db.QueryRow("SELECT version, SourceName, SourceUUID, SourceFormat, ScanCount FROM HeaderTable").
		Scan(&version, &name, &uuid, &format, &headerScanRows))
	assert.Equal(t, schemaVersion, version)
	assert.Equal(t, source.Name, name)
	assert.Equal(t, source.UUID, uuid)
	assert.Equal(t, "mzML", format)
	assert.Equal(t, 2, headerScanRows)
}

func TestWriterFinalizeTwice(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "export.sqlite"), nil)
	require.NoError(t, err)

	require.NoError(t, w.Finalize())
	assert.NoError(t, w.Close())
	assert.ErrorIs(t, w.WriteScan(testScans()[0]), ErrFinalized)
}

func TestWriterDuplicateScanNumber(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "export.sqlite"), nil)
	require.NoError(t, err)
	defer w.Abort()

	scan := testScans()[0]
	require.NoError(t, w.WriteScan(scan))
	assert.Error(t, w.WriteScan(scan))
}

func TestWriterAbortDiscardsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.sqlite")
	w, err := NewWriter(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.WriteScan(testScans()[0]))
	require.NoError(t, w.Abort())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM ScanMetadataTable").Scan(&count))
	assert.Zero(t, count)
}
