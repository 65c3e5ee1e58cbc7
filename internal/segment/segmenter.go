// Package segment partitions a document's OCR fragments into labeled zones
// using anchor keywords. Segmentation is a fold over the ordered page
// sequence carrying an explicit open-zone accumulator, so an item table that
// spills over a page break stays one zone.
package segment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/admjesusia/fiscaloliv/constants"
	"github.com/admjesusia/fiscaloliv/internal/common"
	"github.com/admjesusia/fiscaloliv/internal/entity"
	"github.com/admjesusia/fiscaloliv/internal/normalize"
)

// Anchors maps a zone label to the keywords that open it. Matching is
// case- and diacritic-insensitive.
type Anchors map[constants.ZoneLabel][]string

// DefaultAnchors covers the Brazilian fiscal-note layouts the original
// documents use. All externally overridable through configuration.
func DefaultAnchors() Anchors {
	return Anchors{
		constants.ZoneHeader: {
			"DANFE", "NOTA FISCAL", "DOCUMENTO AUXILIAR", "CNPJ", "EXTRATO",
		},
		constants.ZoneItemTable: {
			"CODIGO DESCRICAO", "ITEM CODIGO", "DESCRICAO QTDE", "ITENS",
		},
		constants.ZoneTotals: {
			"QTDE TOTAL DE ITENS", "VALOR TOTAL", "VALOR A PAGAR", "TOTAL A PAGAR",
		},
		constants.ZoneFooter: {
			"FORMA DE PAGAMENTO", "CONSULTE PELA CHAVE", "TRIBUTOS TOTAIS", "PROTOCOLO",
		},
	}
}

// Segmenter zones pages against a fixed anchor table. Construct once and
// share across runs; it holds no per-document state.
type Segmenter struct {
	anchors Anchors
	folded  map[constants.ZoneLabel][]string
}

func New(anchors Anchors) *Segmenter {
	if anchors == nil {
		anchors = DefaultAnchors()
	}
	folded := make(map[constants.ZoneLabel][]string, len(anchors))
	for label, kws := range anchors {
		fs := make([]string, len(kws))
		for i, kw := range kws {
			fs[i] = foldAnchor(kw)
		}
		folded[label] = fs
	}
	return &Segmenter{anchors: anchors, folded: folded}
}

// open is the fold accumulator: the zone currently collecting fragments.
type open struct {
	label     constants.ZoneLabel
	frags     []entity.Fragment
	firstPage int
	lastPage  int
}

// Segment partitions the document's fragments into ordered zones. Every
// fragment lands in exactly one zone. When no anchor is recognized anywhere
// in the document the whole input is returned as a single Unknown zone
// together with a segmentation error; extraction must not proceed on it.
func (s *Segmenter) Segment(doc entity.Document) ([]entity.Zone, error) {
	var zones []entity.Zone
	var cur *open
	anchorSeen := false

	flush := func() {
		if cur != nil && len(cur.frags) > 0 {
			zones = append(zones, entity.Zone{
				Label:     cur.label,
				Fragments: cur.frags,
				FirstPage: cur.firstPage,
				LastPage:  cur.lastPage,
			})
		}
		cur = nil
	}

	for _, page := range doc.Pages {
		continuing := cur != nil && cur.label == constants.ZoneItemTable &&
			!s.pageOpensWithHeader(page)
		if !continuing {
			flush()
			cur = &open{label: constants.ZoneHeader, firstPage: page.Number, lastPage: page.Number}
		}

		for _, frag := range page.Fragments {
			if label, ok := s.matchAnchor(frag.Text); ok {
				anchorSeen = true
				if label != cur.label {
					flush()
					cur = &open{label: label, firstPage: page.Number, lastPage: page.Number}
				}
			}
			cur.frags = append(cur.frags, frag)
			cur.lastPage = page.Number
		}
	}
	flush()

	if !anchorSeen {
		all := entity.Zone{Label: constants.ZoneUnknown}
		for _, page := range doc.Pages {
			all.Fragments = append(all.Fragments, page.Fragments...)
			if all.FirstPage == 0 {
				all.FirstPage = page.Number
			}
			all.LastPage = page.Number
		}
		return []entity.Zone{all},
			common.NewAppError(constants.CodeSegmentationFailed,
				fmt.Sprintf("no zone anchors recognized in document %s", doc.ID),
				common.ErrSegmentation)
	}
	return zones, nil
}

var reAnchorNoise = regexp.MustCompile(`[^0-9A-Z ]+`)

// foldAnchor prepares text for keyword matching: diacritics stripped,
// uppercased, punctuation collapsed to single spaces. OCR likes to sprinkle
// periods into label rows ("Qtde. total de itens").
func foldAnchor(text string) string {
	folded := reAnchorNoise.ReplaceAllString(normalize.Fold(text), " ")
	return strings.Join(strings.Fields(folded), " ")
}

// matchAnchor finds the earliest anchor keyword within the fragment text.
// When keywords for different zones match at the same offset, the fixed
// constants.AnchorOrder breaks the tie.
func (s *Segmenter) matchAnchor(text string) (constants.ZoneLabel, bool) {
	folded := foldAnchor(text)
	bestIdx := -1
	var bestLabel constants.ZoneLabel
	for _, label := range constants.AnchorOrder {
		for _, kw := range s.folded[label] {
			idx := strings.Index(folded, kw)
			if idx < 0 {
				continue
			}
			if bestIdx < 0 || idx < bestIdx {
				bestIdx = idx
				bestLabel = label
			}
		}
	}
	return bestLabel, bestIdx >= 0
}

// pageOpensWithHeader reports whether the page starts with header-looking
// content. A page whose top fragments carry no header anchor before the
// first other anchor is treated as a table continuation.
func (s *Segmenter) pageOpensWithHeader(page entity.RawPage) bool {
	for _, frag := range page.Fragments {
		label, ok := s.matchAnchor(frag.Text)
		if !ok {
			continue
		}
		return label == constants.ZoneHeader
	}
	return false
}
