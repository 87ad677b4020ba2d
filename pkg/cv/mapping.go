package cv

import (
	"errors"
	"fmt"

	"github.com/ChrisMcGann/scanmeta/pkg/source"
)

// ErrUnsupportedInstrumentValue is matched by every UnsupportedInstrumentValueError.
var ErrUnsupportedInstrumentValue = errors.New("unsupported instrument value")

// UnsupportedInstrumentValueError reports a raw instrument attribute with no
// controlled-vocabulary counterpart.
type UnsupportedInstrumentValueError struct {
	Attribute string
	Value     string
}

func (e *UnsupportedInstrumentValueError) Error() string {
	return fmt.Sprintf("%s: %s %q has no PSI-MS mapping", ErrUnsupportedInstrumentValue, e.Attribute, e.Value)
}

func (e *UnsupportedInstrumentValueError) Unwrap() error {
	return ErrUnsupportedInstrumentValue
}

var analyzerFromSource = map[source.MzAnalyzerType]MassAnalyzerType{
	source.AnalyzerQuadrupole: Quadrupole,
	source.AnalyzerIonTrap2D:  LinearIonTrap,
	source.AnalyzerIonTrap3D:  QuadrupoleIonTrap,
	source.AnalyzerOrbitrap:   Orbitrap,
	source.AnalyzerTOF:        TimeOfFlight,
	source.AnalyzerFTICR:      FourierTransformIonCyclotronResonance,
	source.AnalyzerSector:     MagneticSector,
}

// AnyActivationType, Custom and Unknown name no specific method and have no
// entry.
var dissociationFromSource = map[source.DissociationType]DissociationMethodType{
	source.DissociationCID:    CollisionInducedDissociation,
	source.DissociationMPD:    Photodissociation,
	source.DissociationECD:    ElectronCaptureDissociation,
	source.DissociationPQD:    PulsedQDissociation,
	source.DissociationETD:    ElectronTransferDissociation,
	source.DissociationHCD:    BeamTypeCollisionInducedDissociation,
	source.DissociationEThcD:  ElectronTransferHigherEnergyCollisionDissociation,
	source.DissociationISCID:  InSourceCollisionInducedDissociation,
	source.DissociationLowCID: LowEnergyCollisionInducedDissociation,
	source.DissociationIRMPD:  InfraredMultiphotonDissociation,
	source.DissociationSID:    SurfaceInducedDissociation,
	source.DissociationUVPD:   UltravioletPhotodissociation,
}

// MassAnalyzerFromSource maps a source analyzer onto its PSI-MS term.
// Unknown or out-of-range values fail with ErrUnsupportedInstrumentValue.
func MassAnalyzerFromSource(a source.MzAnalyzerType) (MassAnalyzerType, error) {
	if t, ok := analyzerFromSource[a]; ok {
		return t, nil
	}
	return "", &UnsupportedInstrumentValueError{Attribute: "mass analyzer", Value: a.String()}
}

// DissociationMethodFromSource maps a source activation onto its PSI-MS term.
// DissociationNone yields nil: no method was applied.
func DissociationMethodFromSource(d source.DissociationType) (*DissociationMethodType, error) {
	if d == source.DissociationNone {
		return nil, nil
	}
	if t, ok := dissociationFromSource[d]; ok {
		return &t, nil
	}
	return nil, &UnsupportedInstrumentValueError{Attribute: "dissociation method", Value: d.String()}
}

// PolarityFromSource maps a source polarity. Only an explicit negative flag
// yields NegativeScan; unknown polarity is reported as positive.
func PolarityFromSource(p source.Polarity) ScanPolarity {
	if p == source.PolarityNegative {
		return NegativeScan
	}
	return PositiveScan
}
