package entity

import (
	"strings"

	"github.com/admjesusia/fiscaloliv/constants"
)

// Zone is a labeled contiguous run of fragments. Zones partition a
// document's fragments: every fragment belongs to exactly one zone.
type Zone struct {
	Label     constants.ZoneLabel `json:"label"`
	Fragments []Fragment          `json:"fragments"`
	FirstPage int                 `json:"first_page"`
	LastPage  int                 `json:"last_page"`
}

// Text joins the zone's fragment texts with single spaces, in order.
func (z Zone) Text() string {
	parts := make([]string, len(z.Fragments))
	for i, f := range z.Fragments {
		parts[i] = f.Text
	}
	return strings.Join(parts, " ")
}
