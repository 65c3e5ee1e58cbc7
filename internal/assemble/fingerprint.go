package assemble

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/admjesusia/fiscaloliv/internal/entity"
)

// Fingerprint derives a stable identity for duplicate detection from the
// fields that uniquely identify a fiscal document: issuer, number, series
// and issue date. Invoices missing any part get no fingerprint and are
// never matched as duplicates.
func Fingerprint(inv entity.Invoice) entity.Fingerprint {
	if inv.Issuer.Value == "" || inv.Number == "" || inv.IssueDate.IsZero() {
		return ""
	}
	key := strings.Join([]string{
		inv.Issuer.Value,
		inv.Number,
		inv.Series,
		inv.IssueDate.Format("2006-01-02"),
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return entity.Fingerprint(hex.EncodeToString(sum[:]))
}
