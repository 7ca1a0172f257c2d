package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/order-intake/constants"
	"github.com/joseph-ayodele/order-intake/internal/repository"
)

const sheet = "Orders"

// Service is a tiny façade over the order repository that produces XLSX bytes for exports.
type Service struct {
	orders repository.OrderRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(orders repository.OrderRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{orders: orders, logger: logger, now: time.Now}
}

// ExportOrdersXLSX returns an XLSX workbook (as bytes) of orders created in the date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all orders.
func (s *Service) ExportOrdersXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if from != nil {
		f := dateOnly(*from)
		fromDate = &f
	}
	if to != nil {
		t := dateOnly(*to)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		t := dateOnly(s.now().UTC())
		toDate = &t
	}
	// the repository bound is exclusive
	var until *time.Time
	if toDate != nil {
		u := toDate.AddDate(0, 0, 1)
		until = &u
	}

	orders, err := s.orders.ListCreated(ctx, fromDate, until)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	// rename the default sheet so the workbook has exactly one
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Order ID",
		"First Name",
		"Last Name",
		"Date of Birth",
		"Source",
		"Source File",
		"Created At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", "G1", style)
	}

	row := 2
	for _, o := range orders {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, o.ID)
		write(2, o.FirstName)
		write(3, o.LastName)
		write(4, o.DateOfBirth.String())
		write(5, methodLabel(o.ExtractionMethod))
		write(6, truncate(o.SourceFilename, 140))
		write(7, o.CreatedAt.UTC().Format(time.RFC3339))
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 10) // id
	_ = f.SetColWidth(sheet, "B", "C", 22) // names
	_ = f.SetColWidth(sheet, "D", "E", 14)
	_ = f.SetColWidth(sheet, "F", "F", 48) // file
	_ = f.SetColWidth(sheet, "G", "G", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(orders),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func methodLabel(m constants.ExtractionMethod) string {
	switch m {
	case constants.MethodPDFText:
		return "text layer"
	case constants.MethodPDFOCR:
		return "ocr"
	case "":
		return "manual"
	}
	return string(m)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
