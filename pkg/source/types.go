package source

import (
	"fmt"
	"strings"
)

// MzAnalyzerType is the acquisition library's mass analyzer identifier.
type MzAnalyzerType int

const (
	AnalyzerUnknown MzAnalyzerType = iota
	AnalyzerQuadrupole
	AnalyzerIonTrap2D
	AnalyzerIonTrap3D
	AnalyzerOrbitrap
	AnalyzerTOF
	AnalyzerFTICR
	AnalyzerSector
)

var analyzerNames = [...]string{
	AnalyzerUnknown:    "Unknown",
	AnalyzerQuadrupole: "Quadrupole",
	AnalyzerIonTrap2D:  "IonTrap2D",
	AnalyzerIonTrap3D:  "IonTrap3D",
	AnalyzerOrbitrap:   "Orbitrap",
	AnalyzerTOF:        "TOF",
	AnalyzerFTICR:      "FTICR",
	AnalyzerSector:     "Sector",
}

func (a MzAnalyzerType) String() string {
	if a >= 0 && int(a) < len(analyzerNames) {
		return analyzerNames[a]
	}
	return fmt.Sprintf("MzAnalyzerType(%d)", int(a))
}

// ParseMzAnalyzerType resolves a case-insensitive analyzer name. The short
// forms used in Thermo filter strings ("FT", "IT") are accepted as well.
func ParseMzAnalyzerType(s string) (MzAnalyzerType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ft", "ftms":
		return AnalyzerOrbitrap, nil
	case "it", "itms":
		return AnalyzerIonTrap2D, nil
	}
	for i, name := range analyzerNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return MzAnalyzerType(i), nil
		}
	}
	return AnalyzerUnknown, fmt.Errorf("unknown mass analyzer %q", s)
}

// DissociationType is the acquisition library's activation identifier.
// DissociationNone is the zero value and means no activation was applied.
type DissociationType int

const (
	DissociationNone DissociationType = iota
	DissociationCID
	DissociationMPD
	DissociationECD
	DissociationPQD
	DissociationETD
	DissociationHCD
	DissociationAnyActivationType
	DissociationEThcD
	DissociationCustom
	DissociationISCID
	DissociationLowCID
	DissociationIRMPD
	DissociationSID
	DissociationUVPD
	DissociationUnknown
)

var dissociationNames = [...]string{
	DissociationNone:              "None",
	DissociationCID:               "CID",
	DissociationMPD:               "MPD",
	DissociationECD:               "ECD",
	DissociationPQD:               "PQD",
	DissociationETD:               "ETD",
	DissociationHCD:               "HCD",
	DissociationAnyActivationType: "AnyActivationType",
	DissociationEThcD:             "EThcD",
	DissociationCustom:            "Custom",
	DissociationISCID:             "ISCID",
	DissociationLowCID:            "LowCID",
	DissociationIRMPD:             "IRMPD",
	DissociationSID:               "SID",
	DissociationUVPD:              "UVPD",
	DissociationUnknown:           "Unknown",
}

func (d DissociationType) String() string {
	if d >= 0 && int(d) < len(dissociationNames) {
		return dissociationNames[d]
	}
	return fmt.Sprintf("DissociationType(%d)", int(d))
}

// ParseDissociationType resolves a case-insensitive dissociation name.
func ParseDissociationType(s string) (DissociationType, error) {
	for i, name := range dissociationNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return DissociationType(i), nil
		}
	}
	return DissociationUnknown, fmt.Errorf("unknown dissociation type %q", s)
}

// Polarity is the acquisition library's ion polarity flag.
type Polarity int

const (
	PolarityUnknown Polarity = iota
	PolarityPositive
	PolarityNegative
)

func (p Polarity) String() string {
	switch p {
	case PolarityPositive:
		return "Positive"
	case PolarityNegative:
		return "Negative"
	default:
		return "Unknown"
	}
}
