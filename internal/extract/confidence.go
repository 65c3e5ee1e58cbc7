package extract

import "github.com/admjesusia/fiscaloliv/internal/entity"

// spanConfidence averages the OCR-reported per-character confidence over the
// fragments backing a match, weighted by fragment length. Lowering any
// per-character confidence can only lower the result.
func spanConfidence(frags []entity.Fragment) float64 {
	if len(frags) == 0 {
		return 1.0
	}
	var sum, weight float64
	for _, f := range frags {
		w := float64(len(f.Text))
		if w == 0 {
			continue
		}
		sum += f.Confidence() * w
		weight += w
	}
	if weight == 0 {
		return 1.0
	}
	return sum / weight
}

// damp penalizes a confidence for matches that needed a looser fallback
// pattern rather than the primary one.
func (e *Extractor) damp(c float64) float64 {
	return c * e.cfg.Damping
}
