package spectrum

// PeakFrequency returns the frequency of the largest density bin within
// [loHz, hiHz]. ok is false when no bin falls in the range or every bin in it
// is zero.
func PeakFrequency(p PSD, loHz, hiHz float64) (freq float64, ok bool) {
	best := 0.0
	for i, f := range p.Freqs {
		if f < loHz || f > hiHz || i >= len(p.Density) {
			continue
		}
		if v := p.Density[i]; v > best {
			best = v
			freq = f
			ok = true
		}
	}
	return freq, ok
}

// IntegrateBand sums density over bins selected by in and multiplies by the
// bin spacing, giving band power in units².
func IntegrateBand(p PSD, in func(f float64) bool) float64 {
	df := p.Resolution()
	if df == 0 {
		df = 1
	}
	sum := 0.0
	for i, f := range p.Freqs {
		if i < len(p.Density) && in(f) {
			sum += p.Density[i]
		}
	}
	return sum * df
}

// MeanBand returns the arithmetic mean of density over the bins selected by in,
// and the number of bins used. It returns 0 when no bin is selected.
func MeanBand(p PSD, in func(f float64) bool) (float64, int) {
	sum, count := 0.0, 0
	for i, f := range p.Freqs {
		if i < len(p.Density) && in(f) {
			sum += p.Density[i]
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}
