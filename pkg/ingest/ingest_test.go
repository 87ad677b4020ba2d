package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/scanmeta/pkg/core"
	"github.com/ChrisMcGann/scanmeta/pkg/cv"
	"github.com/ChrisMcGann/scanmeta/pkg/filter"
	"github.com/ChrisMcGann/scanmeta/pkg/reader/mgf"
	"github.com/ChrisMcGann/scanmeta/pkg/source"
	"github.com/ChrisMcGann/scanmeta/pkg/store"
)

type sliceReader struct {
	scans   []*source.Scan
	pos     int
	err     error
	current *source.Scan
}

func (r *sliceReader) Next() bool {
	if r.pos >= len(r.scans) {
		r.current = nil
		return false
	}
	r.current = r.scans[r.pos]
	r.pos++
	return true
}

func (r *sliceReader) Scan() *source.Scan { return r.current }
func (r *sliceReader) Err() error         { return r.err }

type memoryStore struct {
	batches [][]*core.ScanMetadata
	err     error
}

func (s *memoryStore) SaveScans(_ context.Context, scans []*core.ScanMetadata) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, scans)
	return nil
}

func (s *memoryStore) scanNumbers() []int {
	var numbers []int
	for _, batch := range s.batches {
		for _, m := range batch {
			numbers = append(numbers, m.ScanNumber)
		}
	}
	return numbers
}

func f64(v float64) *float64 { return &v }

func scan(n, level int) *source.Scan {
	s := &source.Scan{
		OneBasedScanNumber:          n,
		MsOrder:                     level,
		Polarity:                    source.PolarityPositive,
		MzAnalyzer:                  source.AnalyzerOrbitrap,
		RetentionTime:               f64(float64(n) / 10),
		OneBasedPrecursorScanNumber: source.NoPrecursor,
		Spectrum: &source.Spectrum{Peaks: []source.Peak{
			{MZ: 100, Intensity: 1},
			{MZ: 200, Intensity: 0},
		}},
	}
	if level > 1 {
		s.IsCentroid = true
		s.DissociationType = source.DissociationHCD
		s.OneBasedPrecursorScanNumber = 1
		s.HcdEnergy = "30"
	}
	return s
}

func TestRunStoresInReadOrder(t *testing.T) {
	reader := &sliceReader{scans: []*source.Scan{scan(1, 1), scan(2, 2), scan(3, 2), scan(4, 1), scan(5, 2)}}
	st := &memoryStore{}

	result, err := Run(context.Background(), reader, st, 9, Options{Workers: 3, BatchSize: 2})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Read)
	assert.Equal(t, 5, result.Stored)
	assert.Zero(t, result.Filtered)
	assert.Zero(t, result.Skipped())
	assert.Len(t, st.batches, 3)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, st.scanNumbers())
	for _, batch := range st.batches {
		for _, m := range batch {
			assert.Equal(t, uint(9), m.DataFileID)
		}
	}
}

func TestRunAppliesFilter(t *testing.T) {
	reader := &sliceReader{scans: []*source.Scan{scan(1, 1), scan(2, 2), scan(3, 2)}}
	st := &memoryStore{}

	result, err := Run(context.Background(), reader, st, 1, Options{
		Filter: &filter.Config{MsLevels: []int{2}, FillTotalIonCurrent: true},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Read)
	assert.Equal(t, 1, result.Filtered)
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, []int{2, 3}, st.scanNumbers())

	// TIC filled from the cleaned spectrum
	m := st.batches[0][0]
	require.NotNil(t, m.TotalIonCurrent)
	assert.Equal(t, float32(1), *m.TotalIonCurrent)
}

func TestRunSkipsUnsupportedScans(t *testing.T) {
	bad := scan(2, 2)
	bad.MzAnalyzer = source.AnalyzerUnknown
	reader := &sliceReader{scans: []*source.Scan{scan(1, 1), bad, scan(3, 2)}}
	st := &memoryStore{}

	result, err := Run(context.Background(), reader, st, 1, Options{OnError: Skip})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stored)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 2, result.Failures[0].ScanNumber)
	assert.ErrorIs(t, result.Failures[0].Err, cv.ErrUnsupportedInstrumentValue)
	assert.Equal(t, []int{1, 3}, st.scanNumbers())
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	bad := scan(3, 2)
	bad.DissociationType = source.DissociationCustom
	reader := &sliceReader{scans: []*source.Scan{scan(1, 1), scan(2, 2), bad, scan(4, 2)}}
	st := &memoryStore{}

	result, err := Run(context.Background(), reader, st, 1, Options{OnError: Abort, BatchSize: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, cv.ErrUnsupportedInstrumentValue)

	// The first batch was already committed; nothing after the failure is.
	assert.Equal(t, []int{1, 2}, st.scanNumbers())
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, 1, result.Skipped())
}

func TestRunRejectsNonIncreasingScanNumbers(t *testing.T) {
	reader := &sliceReader{scans: []*source.Scan{scan(1, 1), scan(3, 2), scan(2, 2), scan(3, 2), scan(4, 2)}}
	st := &memoryStore{}

	result, err := Run(context.Background(), reader, st, 1, Options{})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 3, 4}, st.scanNumbers())
	require.Len(t, result.Failures, 2)
	for _, f := range result.Failures {
		assert.ErrorIs(t, f.Err, ErrScanOrder)
	}

	reader = &sliceReader{scans: []*source.Scan{scan(2, 1), scan(2, 1)}}
	_, err = Run(context.Background(), reader, &memoryStore{}, 1, Options{OnError: Abort})
	assert.ErrorIs(t, err, ErrScanOrder)
}

func TestRunReportsInvalidSourceScans(t *testing.T) {
	reader := &sliceReader{scans: []*source.Scan{scan(0, 1), scan(1, 1)}}

	result, err := Run(context.Background(), reader, &memoryStore{}, 1, Options{})
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0].Err, source.ErrInvalidScan)
	assert.Equal(t, 1, result.Stored)
}

func TestRunRejectsUnsortedPeaksWithFilter(t *testing.T) {
	unsorted := scan(2, 2)
	unsorted.Spectrum.Peaks = []source.Peak{{MZ: 300, Intensity: 5}, {MZ: 100, Intensity: 10}}
	reader := &sliceReader{scans: []*source.Scan{scan(1, 1), unsorted}}
	st := &memoryStore{}

	result, err := Run(context.Background(), reader, st, 1, Options{Filter: &filter.Config{}})
	require.NoError(t, err)

	assert.Equal(t, []int{1}, st.scanNumbers())
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 2, result.Failures[0].ScanNumber)
	assert.ErrorIs(t, result.Failures[0].Err, source.ErrInvalidScan)
	assert.Zero(t, result.Filtered)
}

func TestRunReaderError(t *testing.T) {
	readErr := errors.New("truncated file")
	reader := &sliceReader{scans: []*source.Scan{scan(1, 1)}, err: readErr}
	st := &memoryStore{}

	_, err := Run(context.Background(), reader, st, 1, Options{})
	assert.ErrorIs(t, err, readErr)
	assert.Empty(t, st.batches)
}

func TestRunStoreError(t *testing.T) {
	storeErr := errors.New("disk full")
	reader := &sliceReader{scans: []*source.Scan{scan(1, 1)}}

	_, err := Run(context.Background(), reader, &memoryStore{err: storeErr}, 1, Options{})
	assert.ErrorIs(t, err, storeErr)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &sliceReader{scans: []*source.Scan{scan(1, 1), scan(2, 2)}}
	st := &memoryStore{}

	_, err := Run(ctx, reader, st, 1, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, st.batches)
}

func TestParseErrorPolicy(t *testing.T) {
	p, err := ParseErrorPolicy("ABORT")
	require.NoError(t, err)
	assert.Equal(t, Abort, p)
	assert.Equal(t, "abort", p.String())

	p, err = ParseErrorPolicy("")
	require.NoError(t, err)
	assert.Equal(t, Skip, p)
	assert.Equal(t, "skip", p.String())

	_, err = ParseErrorPolicy("retry")
	assert.Error(t, err)
}

const sampleMGF = `BEGIN IONS
TITLE=run.10.10.2
PEPMASS=500.25 12000
CHARGE=2+
RTINSECONDS=600
SCANS=10
COLLISION_ENERGY=28
150.1 10
250.2 20
END IONS
BEGIN IONS
TITLE=run.12.12.3
PEPMASS=612.8
CHARGE=3+
RTINSECONDS=612
SCANS=12
120.0 5
END IONS
`

func TestRunMGFIntoStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "scanmeta.db")})
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.AutoMigrate())

	file, err := st.RegisterDataFile(ctx, "run.mgf", "run.mgf", "mgf")
	require.NoError(t, err)

	reader := mgf.NewReader(strings.NewReader(sampleMGF), mgf.Options{
		Analyzer:     source.AnalyzerOrbitrap,
		Dissociation: source.DissociationHCD,
	})
	result, err := Run(ctx, reader, st, file.ID, Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stored)

	scans, err := st.ListScans(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, scans, 2)

	first := scans[0]
	assert.Equal(t, 10, first.ScanNumber)
	assert.Equal(t, 2, first.MsLevel)
	assert.Equal(t, cv.MSnSpectrum, first.MassSpectrumType)
	assert.Equal(t, cv.Centroid, first.SpectrumRepresentation)
	assert.Equal(t, cv.Orbitrap, first.MassAnalyzerType)
	assert.Nil(t, first.PrecursorScanNumber)
	require.NotNil(t, first.ScanStartTime)
	assert.Equal(t, float32(10), *first.ScanStartTime)
	require.NotNil(t, first.NormalizedCollisionEnergy)
	assert.Equal(t, float32(28), *first.NormalizedCollisionEnergy)
	require.NotNil(t, first.DissociationMethod)
	assert.Equal(t, cv.BeamTypeCollisionInducedDissociation, *first.DissociationMethod)
	assert.NoError(t, first.Validate())

	assert.Equal(t, 12, scans[1].ScanNumber)
}
