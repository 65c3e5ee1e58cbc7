package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/admjesusia/fiscaloliv/internal/entity"
	"github.com/admjesusia/fiscaloliv/internal/repository"
)

// Service is a tiny façade over the invoice store that produces XLSX bytes
// for batch reports: one row per line item, invoice fields repeated.
type Service struct {
	invoices repository.InvoiceRepository
	logger   *slog.Logger
}

func NewService(invoices repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: invoices, logger: logger}
}

// ExportInvoicesXLSX returns an XLSX workbook (as bytes) covering every
// stored invoice. Rejected invoices appear with their error summary and no
// item rows, so a batch report always accounts for every input document.
func (s *Service) ExportInvoicesXLSX(ctx context.Context) ([]byte, error) {
	invs, err := s.invoices.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	return s.render(invs)
}

// RenderInvoicesXLSX builds the same workbook from an in-memory batch,
// bypassing the store.
func (s *Service) RenderInvoicesXLSX(invs []entity.Invoice) ([]byte, error) {
	return s.render(invs)
}

func (s *Service) render(invs []entity.Invoice) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Invoices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Document",
		"Status",
		"Issuer",
		"Number",
		"Issue Date",
		"Item Code",
		"Item Description",
		"Quantity",
		"Unit Price",
		"Item Total",
		"Item Status",
		"Invoice Total",
		"Notes",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	rows := 0
	for _, inv := range invs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		writeInvoice := func() {
			write(1, inv.DocumentID)
			write(2, string(inv.Status))
			write(3, inv.Issuer.Value)
			write(4, inv.Number)
			if !inv.IssueDate.IsZero() {
				write(5, inv.IssueDate.Format("2006-01-02"))
			}
			if inv.Computed.GrandTotal.Valid {
				write(12, inv.Computed.GrandTotal.Decimal.String())
			}
			write(13, truncate(notes(inv), 140))
		}

		if len(inv.Items) == 0 {
			writeInvoice()
			row++
			rows++
			continue
		}
		for _, it := range inv.Items {
			writeInvoice()
			write(6, it.Code)
			write(7, it.Description)
			write(8, it.Quantity.String())
			write(9, it.UnitPrice.String())
			write(10, it.Subtotal.String())
			write(11, string(it.Status))
			row++
			rows++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 24) // document
	_ = f.SetColWidth(sheet, "B", "B", 26) // status
	_ = f.SetColWidth(sheet, "C", "C", 18) // issuer
	_ = f.SetColWidth(sheet, "E", "E", 12) // date
	_ = f.SetColWidth(sheet, "G", "G", 36) // description
	_ = f.SetColWidth(sheet, "M", "M", 48) // notes

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"invoices", len(invs),
		"rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// notes summarizes problems for the report: error codes first, then
// warning codes, comma separated.
func notes(inv entity.Invoice) string {
	out := ""
	for _, p := range inv.Errors {
		if out != "" {
			out += ", "
		}
		out += p.Code
	}
	for _, p := range inv.Warnings {
		if out != "" {
			out += ", "
		}
		out += p.Code
	}
	if inv.Duplicate && out == "" {
		out = "duplicate"
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
