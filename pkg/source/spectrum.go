package source

import "sort"

// Spectrum is the transient peak list attached to a scan during ingestion.
type Spectrum struct {
	Peaks []Peak
}

// Peak represents a single m/z, intensity pair.
type Peak struct {
	MZ        float64
	Intensity float64
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *Spectrum) ArePeaksSorted() bool {
	for i := 1; i < len(s.Peaks); i++ {
		if s.Peaks[i].MZ < s.Peaks[i-1].MZ {
			return false
		}
	}
	return true
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *Spectrum) SortPeaks() {
	sort.Slice(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// TotalIntensity returns the summed intensity of all peaks.
func (s *Spectrum) TotalIntensity() float64 {
	total := 0.0
	for _, p := range s.Peaks {
		total += p.Intensity
	}
	return total
}

// BasePeak returns the most intense peak and false when the spectrum is empty.
func (s *Spectrum) BasePeak() (Peak, bool) {
	if len(s.Peaks) == 0 {
		return Peak{}, false
	}
	base := s.Peaks[0]
	for _, p := range s.Peaks[1:] {
		if p.Intensity > base.Intensity {
			base = p
		}
	}
	return base, true
}
