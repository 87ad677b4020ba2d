package mzml

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/scanmeta/pkg/source"
)

// PSI-MS accessions interpreted by the reader
const (
	accMsLevel              = "MS:1000511"
	accMS1Spectrum          = "MS:1000579"
	accCentroid             = "MS:1000127"
	accPositiveScan         = "MS:1000130"
	accNegativeScan         = "MS:1000129"
	accTotalIonCurrent      = "MS:1000285"
	accScanStartTime        = "MS:1000016"
	accFilterString         = "MS:1000512"
	accIonInjectionTime     = "MS:1000927"
	accScanWindowLower      = "MS:1000501"
	accScanWindowUpper      = "MS:1000500"
	accSelectedIonMz        = "MS:1000744"
	accChargeState          = "MS:1000041"
	accPeakIntensity        = "MS:1000042"
	accIsolationTarget      = "MS:1000827"
	accIsolationLowerOffset = "MS:1000828"
	accIsolationUpperOffset = "MS:1000829"
	accCollisionEnergy      = "MS:1000045"
	accMzArray              = "MS:1000514"
	accIntensityArray       = "MS:1000515"
	acc32BitFloat           = "MS:1000521"
	acc64BitFloat           = "MS:1000523"
	accZlibCompression      = "MS:1000574"

	accETD                  = "MS:1000598"
	accBeamTypeCID          = "MS:1000422"
	accEThcD                = "MS:1002631"
	accSupplementalBeamCID  = "MS:1002678"
	accSupplementalCID      = "MS:1002679"
	accElectronCaptureDiss  = "MS:1000250"
	accInSourceCID          = "MS:1001880"
	accLowEnergyCID         = "MS:1000433"
	accTrapTypeCID          = "MS:1002472"
	accCID                  = "MS:1000133"
	accPulsedQDissociation  = "MS:1000599"
	accIRMPD                = "MS:1000262"
	accSurfaceInducedDiss   = "MS:1000136"
	accUltravioletPhotodiss = "MS:1003246"
	accMultiphotonDiss      = "MS:1000435"

	unitSecond            = "UO:0000010"
	unitMinute            = "UO:0000031"
	monoisotopicUserParam = "Monoisotopic M/Z"
)

var analyzerAccessions = map[string]source.MzAnalyzerType{
	"MS:1000081": source.AnalyzerQuadrupole,
	"MS:1000082": source.AnalyzerIonTrap3D,
	"MS:1000264": source.AnalyzerIonTrap3D,
	"MS:1000291": source.AnalyzerIonTrap2D,
	"MS:1000083": source.AnalyzerIonTrap2D,
	"MS:1000078": source.AnalyzerIonTrap2D,
	"MS:1000484": source.AnalyzerOrbitrap,
	"MS:1000084": source.AnalyzerTOF,
	"MS:1000079": source.AnalyzerFTICR,
	"MS:1000080": source.AnalyzerSector,
}

// activationOrder is checked after ETD combinations have been resolved.
var activationOrder = []struct {
	accession string
	typ       source.DissociationType
}{
	{accElectronCaptureDiss, source.DissociationECD},
	{accBeamTypeCID, source.DissociationHCD},
	{accInSourceCID, source.DissociationISCID},
	{accLowEnergyCID, source.DissociationLowCID},
	{accTrapTypeCID, source.DissociationCID},
	{accCID, source.DissociationCID},
	{accPulsedQDissociation, source.DissociationPQD},
	{accIRMPD, source.DissociationIRMPD},
	{accMultiphotonDiss, source.DissociationMPD},
	{accSurfaceInducedDiss, source.DissociationSID},
	{accUltravioletPhotodiss, source.DissociationUVPD},
}

// MS-Numpress encodings
var numpressAccessions = []string{
	"MS:1002312", "MS:1002313", "MS:1002314",
	"MS:1002746", "MS:1002747", "MS:1002748",
}

var errUnsupportedCompression = errors.New("unsupported binary compression")

type paramSet map[string]CVParam

func (s paramSet) has(accession string) bool {
	_, ok := s[accession]
	return ok
}

// float returns the parameter's value, or nil when it is absent.
func (s paramSet) float(accession string) (*float64, error) {
	c, ok := s[accession]
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s value %q", ErrInvalidSpectrum, c.Name, c.Value)
	}
	return &v, nil
}

// minutes returns a time parameter converted to minutes.
func (s paramSet) minutes(accession string) (*float64, error) {
	v, err := s.float(accession)
	if v == nil || err != nil {
		return v, err
	}

	switch unit := s[accession].UnitAccession; unit {
	case unitMinute:
	case unitSecond:
		*v /= 60
	default:
		return nil, fmt.Errorf("%w %q for %s", ErrUnknownUnit, s[accession].UnitName, s[accession].Name)
	}
	return v, nil
}

// dissociation resolves the activation block. An empty block means the scan
// was not activated; terms that are not recognised give DissociationUnknown.
func dissociation(set paramSet) source.DissociationType {
	if len(set) == 0 {
		return source.DissociationNone
	}

	if set.has(accEThcD) {
		return source.DissociationEThcD
	}
	if set.has(accETD) {
		if set.has(accBeamTypeCID) || set.has(accSupplementalBeamCID) {
			return source.DissociationEThcD
		}
		return source.DissociationETD
	}

	for _, a := range activationOrder {
		if set.has(a.accession) {
			return a.typ
		}
	}
	if set.has(accSupplementalCID) {
		return source.DissociationCID
	}
	return source.DissociationUnknown
}

// decodeArray decodes a base64 binary array into float64 values.
func decodeArray(encoded string, set paramSet) ([]float64, error) {
	for _, acc := range numpressAccessions {
		if set.has(acc) {
			return nil, errUnsupportedCompression
		}
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode binary array: %w", err)
	}

	if set.has(accZlibCompression) {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to inflate binary array: %w", err)
		}
		raw, err = io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to inflate binary array: %w", err)
		}
	}

	var width int
	switch {
	case set.has(acc64BitFloat):
		width = 8
	case set.has(acc32BitFloat):
		width = 4
	default:
		return nil, fmt.Errorf("%w: binary array has no supported precision", ErrInvalidSpectrum)
	}
	if len(raw)%width != 0 {
		return nil, fmt.Errorf("%w: binary array length %d is not a multiple of %d", ErrInvalidSpectrum, len(raw), width)
	}

	values := make([]float64, len(raw)/width)
	for i := range values {
		chunk := raw[i*width : (i+1)*width]
		if width == 8 {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(chunk))
		} else {
			values[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(chunk)))
		}
	}
	return values, nil
}
