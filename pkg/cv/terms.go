// Package cv holds the PSI-MS controlled-vocabulary enumerations used to
// describe scan metadata, and the mappings from source instrument values onto
// them.
//
// Each enumeration is a closed set. Member values are the PSI-MS term names,
// which is also what gets stored; accessions are looked up through Term.
package cv

// Term is one PSI-MS ontology entry.
type Term struct {
	Accession string
	Name      string
}

func lookup[T ~string](accessions map[T]string, v T) (Term, bool) {
	acc, ok := accessions[v]
	if !ok {
		return Term{}, false
	}
	return Term{Accession: acc, Name: string(v)}, true
}

// SpectrumRepresentation is the way in which the spectrum is represented,
// either with regularly spaced data points or with a list of centroided peaks.
type SpectrumRepresentation string

const (
	// Centroid: processing of profile data to produce spectra that contain
	// discrete peaks of zero width.
	Centroid SpectrumRepresentation = "centroid spectrum"
	// Profile: a profile mass spectrum is created when data is recorded with
	// ion current (counts per second) on one axis and m/z on the other.
	Profile SpectrumRepresentation = "profile spectrum"
)

var representationAccessions = map[SpectrumRepresentation]string{
	Centroid: "MS:1000127",
	Profile:  "MS:1000128",
}

// Term returns the PSI-MS entry of the representation, and false for values outside the set.
func (r SpectrumRepresentation) Term() (Term, bool) {
	return lookup(representationAccessions, r)
}

// Valid reports whether the representation is a member of the set.
func (r SpectrumRepresentation) Valid() bool {
	_, ok := representationAccessions[r]
	return ok
}

// String returns the PSI-MS term name.
func (r SpectrumRepresentation) String() string {
	return string(r)
}

// MassSpectrumType is the spectrum category (MS:1000559 spectrum type).
type MassSpectrumType string

// Spectrum types named by PSI-MS. FromScan produces only MS1Spectrum and
// MSnSpectrum; the others are valid stored values.
const (
	// MS1Spectrum: mass spectrum created by a single-stage MS experiment.
	MS1Spectrum MassSpectrumType = "MS1 spectrum"
	// MSnSpectrum: mass spectrum of a selected precursor after dissociation.
	MSnSpectrum MassSpectrumType = "MSn spectrum"

	CRMSpectrum                      MassSpectrumType = "CRM spectrum"
	SIMSpectrum                      MassSpectrumType = "SIM spectrum"
	SRMSpectrum                      MassSpectrumType = "SRM spectrum"
	PrecursorIonSpectrum             MassSpectrumType = "precursor ion spectrum"
	ConstantNeutralGainSpectrum      MassSpectrumType = "constant neutral gain spectrum"
	ConstantNeutralLossSpectrum      MassSpectrumType = "constant neutral loss spectrum"
	EnhancedMultiplyChargedSpectrum  MassSpectrumType = "enhanced multiply charged spectrum"
	TimeDelayedFragmentationSpectrum MassSpectrumType = "time-delayed fragmentation spectrum"
	ElectromagneticRadiationSpectrum MassSpectrumType = "electromagnetic radiation spectrum"
	EmissionSpectrum                 MassSpectrumType = "emission spectrum"
	AbsorptionSpectrum               MassSpectrumType = "absorption spectrum"
)

var spectrumTypeAccessions = map[MassSpectrumType]string{
	MS1Spectrum:                      "MS:1000579",
	MSnSpectrum:                      "MS:1000580",
	CRMSpectrum:                      "MS:1000581",
	SIMSpectrum:                      "MS:1000582",
	SRMSpectrum:                      "MS:1000583",
	PrecursorIonSpectrum:             "MS:1000341",
	ConstantNeutralGainSpectrum:      "MS:1000325",
	ConstantNeutralLossSpectrum:      "MS:1000326",
	EnhancedMultiplyChargedSpectrum:  "MS:1000789",
	TimeDelayedFragmentationSpectrum: "MS:1000790",
	ElectromagneticRadiationSpectrum: "MS:1000804",
	EmissionSpectrum:                 "MS:1000805",
	AbsorptionSpectrum:               "MS:1000806",
}

// Term returns the PSI-MS entry of the spectrum type, and false for values outside the set.
func (t MassSpectrumType) Term() (Term, bool) {
	return lookup(spectrumTypeAccessions, t)
}

// Valid reports whether the spectrum type is a member of the set.
func (t MassSpectrumType) Valid() bool {
	_, ok := spectrumTypeAccessions[t]
	return ok
}

// String returns the PSI-MS term name.
func (t MassSpectrumType) String() string {
	return string(t)
}

// MassAnalyzerType is the technology used to separate ions by m/z
// (MS:1000443 mass analyzer type).
type MassAnalyzerType string

const (
	Quadrupole                            MassAnalyzerType = "quadrupole"
	QuadrupoleIonTrap                     MassAnalyzerType = "quadrupole ion trap"
	IonTrap                               MassAnalyzerType = "ion trap"
	LinearIonTrap                         MassAnalyzerType = "linear ion trap"
	AxialEjectionLinearIonTrap            MassAnalyzerType = "axial ejection linear ion trap"
	RadialEjectionLinearIonTrap           MassAnalyzerType = "radial ejection linear ion trap"
	Orbitrap                              MassAnalyzerType = "orbitrap"
	TimeOfFlight                          MassAnalyzerType = "time-of-flight"
	FourierTransformIonCyclotronResonance MassAnalyzerType = "fourier transform ion cyclotron resonance mass spectrometer"
	MagneticSector                        MassAnalyzerType = "magnetic sector"
	ElectrostaticEnergyAnalyzer           MassAnalyzerType = "electrostatic energy analyzer"
	StoredWaveformInverseFourierTransform MassAnalyzerType = "stored waveform inverse fourier transform"
	Cyclotron                             MassAnalyzerType = "cyclotron"
)

var analyzerAccessions = map[MassAnalyzerType]string{
	Quadrupole:                            "MS:1000081",
	QuadrupoleIonTrap:                     "MS:1000082",
	IonTrap:                               "MS:1000264",
	LinearIonTrap:                         "MS:1000291",
	AxialEjectionLinearIonTrap:            "MS:1000078",
	RadialEjectionLinearIonTrap:           "MS:1000083",
	Orbitrap:                              "MS:1000484",
	TimeOfFlight:                          "MS:1000084",
	FourierTransformIonCyclotronResonance: "MS:1000079",
	MagneticSector:                        "MS:1000080",
	ElectrostaticEnergyAnalyzer:           "MS:1000254",
	StoredWaveformInverseFourierTransform: "MS:1000284",
	Cyclotron:                             "MS:1000288",
}

// Term returns the PSI-MS entry of the analyzer, and false for values outside the set.
func (a MassAnalyzerType) Term() (Term, bool) {
	return lookup(analyzerAccessions, a)
}

// Valid reports whether the analyzer is a member of the set.
func (a MassAnalyzerType) Valid() bool {
	_, ok := analyzerAccessions[a]
	return ok
}

// String returns the PSI-MS term name.
func (a MassAnalyzerType) String() string {
	return string(a)
}

// ScanPolarity is the polarity of the ions being scanned.
type ScanPolarity string

const (
	PositiveScan ScanPolarity = "positive scan"
	NegativeScan ScanPolarity = "negative scan"
)

var polarityAccessions = map[ScanPolarity]string{
	PositiveScan: "MS:1000130",
	NegativeScan: "MS:1000129",
}

// Term returns the PSI-MS entry of the polarity, and false for values outside the set.
func (p ScanPolarity) Term() (Term, bool) {
	return lookup(polarityAccessions, p)
}

// Valid reports whether the polarity is a member of the set.
func (p ScanPolarity) Valid() bool {
	_, ok := polarityAccessions[p]
	return ok
}

// String returns the PSI-MS term name.
func (p ScanPolarity) String() string {
	return string(p)
}

// DissociationMethodType is the fragmentation method used for dissociation or
// fragmentation of a selected precursor (MS:1000044 dissociation method).
type DissociationMethodType string

const (
	CollisionInducedDissociation                      DissociationMethodType = "collision-induced dissociation"
	PlasmaDesorption                                  DissociationMethodType = "plasma desorption"
	PostSourceDecay                                   DissociationMethodType = "post-source decay"
	SurfaceInducedDissociation                        DissociationMethodType = "surface-induced dissociation"
	BlackbodyInfraredRadiativeDissociation            DissociationMethodType = "blackbody infrared radiative dissociation"
	ElectronCaptureDissociation                       DissociationMethodType = "electron capture dissociation"
	InfraredMultiphotonDissociation                   DissociationMethodType = "infrared multiphoton dissociation"
	SustainedOffResonanceIrradiation                  DissociationMethodType = "sustained off-resonance irradiation"
	BeamTypeCollisionInducedDissociation              DissociationMethodType = "beam-type collision-induced dissociation"
	LowEnergyCollisionInducedDissociation             DissociationMethodType = "low-energy collision-induced dissociation"
	Photodissociation                                 DissociationMethodType = "photodissociation"
	ElectronTransferDissociation                      DissociationMethodType = "electron transfer dissociation"
	PulsedQDissociation                               DissociationMethodType = "pulsed q dissociation"
	InSourceCollisionInducedDissociation              DissociationMethodType = "in-source collision-induced dissociation"
	TrapTypeCollisionInducedDissociation              DissociationMethodType = "trap-type collision-induced dissociation"
	ElectronTransferHigherEnergyCollisionDissociation DissociationMethodType = "electron-transfer/higher-energy collision dissociation"
	UltravioletPhotodissociation                      DissociationMethodType = "ultraviolet photodissociation"
)

var dissociationAccessions = map[DissociationMethodType]string{
	CollisionInducedDissociation:                      "MS:1000133",
	PlasmaDesorption:                                  "MS:1000134",
	PostSourceDecay:                                   "MS:1000135",
	SurfaceInducedDissociation:                        "MS:1000136",
	BlackbodyInfraredRadiativeDissociation:            "MS:1000242",
	ElectronCaptureDissociation:                       "MS:1000250",
	InfraredMultiphotonDissociation:                   "MS:1000262",
	SustainedOffResonanceIrradiation:                  "MS:1000282",
	BeamTypeCollisionInducedDissociation:              "MS:1000422",
	LowEnergyCollisionInducedDissociation:             "MS:1000433",
	Photodissociation:                                 "MS:1000435",
	ElectronTransferDissociation:                      "MS:1000598",
	PulsedQDissociation:                               "MS:1000599",
	InSourceCollisionInducedDissociation:              "MS:1001880",
	TrapTypeCollisionInducedDissociation:              "MS:1002472",
	ElectronTransferHigherEnergyCollisionDissociation: "MS:1002631",
	UltravioletPhotodissociation:                      "MS:1003246",
}

// Term returns the PSI-MS entry of the dissociation method, and false for values outside the set.
func (d DissociationMethodType) Term() (Term, bool) {
	return lookup(dissociationAccessions, d)
}

// Valid reports whether the dissociation method is a member of the set.
func (d DissociationMethodType) Valid() bool {
	_, ok := dissociationAccessions[d]
	return ok
}

// String returns the PSI-MS term name.
func (d DissociationMethodType) String() string {
	return string(d)
}

