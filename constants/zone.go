package constants

// ZoneLabel tags a contiguous region of a document's OCR fragments.
type ZoneLabel string

const (
	ZoneHeader    ZoneLabel = "HEADER"
	ZoneItemTable ZoneLabel = "ITEM_TABLE"
	ZoneTotals    ZoneLabel = "TOTALS"
	ZoneFooter    ZoneLabel = "FOOTER"
	ZoneUnknown   ZoneLabel = "UNKNOWN"
)

// AnchorOrder is the fixed tie-break order when a fragment matches anchor
// keywords for more than one zone at the same text offset. Keeping a fixed
// order keeps segmentation deterministic.
var AnchorOrder = []ZoneLabel{ZoneItemTable, ZoneTotals, ZoneFooter, ZoneHeader}

// Specificity ranks zone labels for candidate tie-breaks: a candidate drawn
// from a named zone beats one drawn from an Unknown zone.
func (z ZoneLabel) Specificity() int {
	if z == ZoneUnknown {
		return 0
	}
	return 1
}
