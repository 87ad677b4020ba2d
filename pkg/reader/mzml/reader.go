// Package mzml provides a streaming reader for HUPO-PSI mzML files.
//
// Spectra are decoded one at a time from the token stream so that whole runs
// never have to be held in memory. Only the metadata needed to describe a scan
// and its peak arrays is interpreted; everything else is skipped.
package mzml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/scanmeta/pkg/source"
)

var (
	// ErrUnknownUnit means the file contains a unit the reader cannot convert
	ErrUnknownUnit = errors.New("mzML: can't handle unit")
	// ErrInvalidSpectrum means a spectrum element lacks required metadata
	ErrInvalidSpectrum = errors.New("mzML: invalid spectrum")
)

// CVParam contains values and attributes of a mzML Controlled Vocabulary term
type CVParam struct {
	Accession     string `xml:"accession,attr"`
	Name          string `xml:"name,attr"`
	Value         string `xml:"value,attr"`
	UnitCvRef     string `xml:"unitCvRef,attr"`
	UnitAccession string `xml:"unitAccession,attr"`
	UnitName      string `xml:"unitName,attr"`
}

type userParam struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type paramGroupRef struct {
	Ref string `xml:"ref,attr"`
}

// params is the parameter block shared by most mzML elements.
type params struct {
	CvPar     []CVParam       `xml:"cvParam"`
	UserPar   []userParam     `xml:"userParam"`
	GroupRefs []paramGroupRef `xml:"referenceableParamGroupRef"`
}

type paramGroup struct {
	ID    string    `xml:"id,attr"`
	CvPar []CVParam `xml:"cvParam"`
}

type instrumentConfiguration struct {
	ID string `xml:"id,attr"`
	params
	Analyzers []component `xml:"componentList>analyzer"`
}

type component struct {
	Order int `xml:"order,attr"`
	params
}

type spectrum struct {
	Index int    `xml:"index,attr"`
	ID    string `xml:"id,attr"`
	params
	Scans        []scanElement     `xml:"scanList>scan"`
	Precursors   []precursor       `xml:"precursorList>precursor"`
	BinaryArrays []binaryDataArray `xml:"binaryDataArrayList>binaryDataArray"`
}

type scanElement struct {
	InstrConfRef string `xml:"instrumentConfigurationRef,attr"`
	params
	Windows []params `xml:"scanWindowList>scanWindow"`
}

type precursor struct {
	SpectrumRef     string   `xml:"spectrumRef,attr"`
	IsolationWindow params   `xml:"isolationWindow"`
	SelectedIons    []params `xml:"selectedIonList>selectedIon"`
	Activation      params   `xml:"activation"`
}

type binaryDataArray struct {
	params
	Binary string `xml:"binary"`
}

// Reader provides streaming access to mzML and indexedmzML files
type Reader struct {
	decoder     *xml.Decoder
	paramGroups map[string][]CVParam
	analyzers   map[string]source.MzAnalyzerType
	defaultConf string
	current     *source.Scan
	err         error
	done        bool
}

// NewReader creates a new mzML reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		decoder:     xml.NewDecoder(r),
		paramGroups: make(map[string][]CVParam),
		analyzers:   make(map[string]source.MzAnalyzerType),
	}
}

// Next advances to the next spectrum. Returns false when no more spectra or error.
func (r *Reader) Next() bool {
	r.current = nil
	if r.done {
		return false
	}

	for {
		tok, err := r.decoder.Token()
		if err != nil {
			r.done = true
			if err != io.EOF {
				r.err = fmt.Errorf("failed to read mzML: %w", err)
			}
			return false
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "referenceableParamGroup":
			var group paramGroup
			if err := r.decoder.DecodeElement(&group, &start); err != nil {
				return r.fail(fmt.Errorf("failed to decode param group: %w", err))
			}
			r.paramGroups[group.ID] = group.CvPar

		case "instrumentConfiguration":
			var conf instrumentConfiguration
			if err := r.decoder.DecodeElement(&conf, &start); err != nil {
				return r.fail(fmt.Errorf("failed to decode instrument configuration: %w", err))
			}
			r.analyzers[conf.ID] = r.analyzerOf(&conf)

		case "run":
			for _, attr := range start.Attr {
				if attr.Name.Local == "defaultInstrumentConfigurationRef" {
					r.defaultConf = attr.Value
				}
			}

		case "spectrum":
			var spec spectrum
			if err := r.decoder.DecodeElement(&spec, &start); err != nil {
				return r.fail(fmt.Errorf("failed to decode spectrum: %w", err))
			}
			scan, err := r.convert(&spec)
			if err != nil {
				return r.fail(fmt.Errorf("spectrum %q: %w", spec.ID, err))
			}
			r.current = scan
			return true
		}
	}
}

// Scan returns the current scan
func (r *Reader) Scan() *source.Scan {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(err error) bool {
	r.err = err
	r.done = true
	return false
}

// resolve flattens a parameter block and the param groups it references,
// keyed by accession. Inline parameters override group parameters.
func (r *Reader) resolve(p *params) paramSet {
	set := make(paramSet, len(p.CvPar))
	for _, ref := range p.GroupRefs {
		for _, c := range r.paramGroups[ref.Ref] {
			set[c.Accession] = c
		}
	}
	for _, c := range p.CvPar {
		set[c.Accession] = c
	}
	return set
}

// analyzerOf returns the analyzer of the component with the highest order,
// which is the one that records the spectrum on hybrid instruments.
func (r *Reader) analyzerOf(conf *instrumentConfiguration) source.MzAnalyzerType {
	analyzer := source.AnalyzerUnknown
	order := -1
	for i := range conf.Analyzers {
		comp := &conf.Analyzers[i]
		if comp.Order < order {
			continue
		}
		set := r.resolve(&comp.params)
		for acc, typ := range analyzerAccessions {
			if set.has(acc) {
				analyzer = typ
				order = comp.Order
				break
			}
		}
	}
	return analyzer
}

func (r *Reader) convert(s *spectrum) (*source.Scan, error) {
	sp := r.resolve(&s.params)

	scan := &source.Scan{
		OneBasedScanNumber:          scanNumber(s.ID, s.Index),
		IsCentroid:                  sp.has(accCentroid),
		NativeID:                    s.ID,
		OneBasedPrecursorScanNumber: source.NoPrecursor,
	}

	switch c, ok := sp[accMsLevel]; {
	case ok:
		level, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || level < 1 {
			return nil, fmt.Errorf("%w: ms level %q", ErrInvalidSpectrum, c.Value)
		}
		scan.MsOrder = level
	case sp.has(accMS1Spectrum):
		scan.MsOrder = 1
	default:
		return nil, fmt.Errorf("%w: missing ms level", ErrInvalidSpectrum)
	}

	switch {
	case sp.has(accPositiveScan):
		scan.Polarity = source.PolarityPositive
	case sp.has(accNegativeScan):
		scan.Polarity = source.PolarityNegative
	}

	var err error
	if scan.TotalIonCurrent, err = sp.float(accTotalIonCurrent); err != nil {
		return nil, err
	}

	conf := r.defaultConf
	monoisotopic := findUserParam(s.UserPar, monoisotopicUserParam)
	if len(s.Scans) > 0 {
		sc := &s.Scans[0]
		if sc.InstrConfRef != "" {
			conf = sc.InstrConfRef
		}
		if err := r.applyScan(scan, sc); err != nil {
			return nil, err
		}
		if v := findUserParam(sc.UserPar, monoisotopicUserParam); v != "" {
			monoisotopic = v
		}
	}
	scan.MzAnalyzer = r.analyzers[conf]

	if len(s.Precursors) > 0 {
		if err := r.applyPrecursor(scan, &s.Precursors[0]); err != nil {
			return nil, err
		}
	}

	if monoisotopic != "" && scan.MsOrder > 1 {
		// Thermo reports 0 when the monoisotopic peak was not determined.
		if mz, err := strconv.ParseFloat(strings.TrimSpace(monoisotopic), 64); err == nil && mz > 0 {
			scan.SelectedIonMonoisotopicGuessMz = &mz
		}
	}

	if scan.Spectrum, err = r.peaks(s.BinaryArrays); err != nil {
		return nil, err
	}

	return scan, nil
}

func (r *Reader) applyScan(scan *source.Scan, sc *scanElement) error {
	set := r.resolve(&sc.params)

	var err error
	if scan.RetentionTime, err = set.minutes(accScanStartTime); err != nil {
		return err
	}
	if scan.InjectionTime, err = set.float(accIonInjectionTime); err != nil {
		return err
	}
	if c, ok := set[accFilterString]; ok {
		scan.ScanFilter = c.Value
	}

	if len(sc.Windows) > 0 {
		window := r.resolve(&sc.Windows[0])
		if scan.ScanWindowLow, err = window.float(accScanWindowLower); err != nil {
			return err
		}
		if scan.ScanWindowHigh, err = window.float(accScanWindowUpper); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) applyPrecursor(scan *source.Scan, p *precursor) error {
	scan.OneBasedPrecursorScanNumber = precursorScanNumber(p.SpectrumRef)

	var err error
	iso := r.resolve(&p.IsolationWindow)
	if scan.IsolationMz, err = iso.float(accIsolationTarget); err != nil {
		return err
	}
	lower, err := iso.float(accIsolationLowerOffset)
	if err != nil {
		return err
	}
	upper, err := iso.float(accIsolationUpperOffset)
	if err != nil {
		return err
	}
	if lower != nil && upper != nil {
		width := *lower + *upper
		scan.IsolationWidth = &width
	}

	if len(p.SelectedIons) > 0 {
		ion := r.resolve(&p.SelectedIons[0])
		if scan.SelectedIonMz, err = ion.float(accSelectedIonMz); err != nil {
			return err
		}
		if scan.SelectedIonIntensity, err = ion.float(accPeakIntensity); err != nil {
			return err
		}
		if c, ok := ion[accChargeState]; ok {
			charge, err := strconv.Atoi(strings.TrimSpace(c.Value))
			if err != nil {
				return fmt.Errorf("%w: charge state %q", ErrInvalidSpectrum, c.Value)
			}
			scan.SelectedIonChargeStateGuess = &charge
		}
	}

	activation := r.resolve(&p.Activation)
	scan.DissociationType = dissociation(activation)
	if c, ok := activation[accCollisionEnergy]; ok {
		scan.HcdEnergy = c.Value
	}
	return nil
}

// peaks decodes the m/z and intensity arrays. A spectrum without arrays has
// no peaks; arrays in an unsupported encoding yield a nil spectrum.
func (r *Reader) peaks(arrays []binaryDataArray) (*source.Spectrum, error) {
	var mzs, intensities []float64
	for i := range arrays {
		array := &arrays[i]
		set := r.resolve(&array.params)

		var target *[]float64
		switch {
		case set.has(accMzArray):
			target = &mzs
		case set.has(accIntensityArray):
			target = &intensities
		default:
			continue
		}

		values, err := decodeArray(array.Binary, set)
		if errors.Is(err, errUnsupportedCompression) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		*target = values
	}

	if len(mzs) != len(intensities) {
		return nil, fmt.Errorf("%w: %d m/z values but %d intensities", ErrInvalidSpectrum, len(mzs), len(intensities))
	}

	spec := &source.Spectrum{Peaks: make([]source.Peak, len(mzs))}
	for i := range mzs {
		spec.Peaks[i] = source.Peak{MZ: mzs[i], Intensity: intensities[i]}
	}
	if !spec.ArePeaksSorted() {
		spec.SortPeaks()
	}
	return spec, nil
}

// scanNumber extracts N from a native id such as
// "controllerType=0 controllerNumber=1 scan=N", falling back to the
// spectrum's position in the file.
func scanNumber(id string, index int) int {
	if n, ok := nativeIDNumber(id); ok {
		return n
	}
	return index + 1
}

func precursorScanNumber(ref string) int {
	if n, ok := nativeIDNumber(ref); ok {
		return n
	}
	return source.NoPrecursor
}

func nativeIDNumber(id string) (int, bool) {
	for _, field := range strings.Fields(id) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		switch key {
		case "scan", "scanId":
			if n >= 1 {
				return n, true
			}
		case "index":
			if n >= 0 {
				return n + 1, true
			}
		}
	}
	return 0, false
}

func findUserParam(ps []userParam, name string) string {
	for _, p := range ps {
		if strings.Contains(p.Name, name) {
			return p.Value
		}
	}
	return ""
}
