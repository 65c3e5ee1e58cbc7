package entity

// Fragment is a single OCR text span with its approximate position on the
// page and the OCR engine's per-character confidence. Fragments are owned by
// the caller and never mutated by the pipeline.
type Fragment struct {
	Text            string    `json:"text"`
	X               float64   `json:"x"`
	Y               float64   `json:"y"`
	CharConfidences []float64 `json:"char_confidences,omitempty"`
}

// Confidence returns the mean per-character confidence of the fragment.
// Fragments without reported confidences are treated as fully confident,
// so supplying lower per-character values can only lower the result.
func (f Fragment) Confidence() float64 {
	if len(f.CharConfidences) == 0 {
		return 1.0
	}
	var sum float64
	for _, c := range f.CharConfidences {
		sum += c
	}
	return sum / float64(len(f.CharConfidences))
}

// RawPage is the OCR output for one physical page: an ordered sequence of
// fragments in reading order.
type RawPage struct {
	Number    int        `json:"number"`
	Fragments []Fragment `json:"fragments"`
}

// Document is the full multi-page OCR input for one fiscal note.
type Document struct {
	ID    string    `json:"document_id"`
	Pages []RawPage `json:"pages"`
}

// FragmentCount returns the total number of fragments across all pages.
func (d Document) FragmentCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Fragments)
	}
	return n
}
