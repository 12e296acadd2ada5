package export

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"exportdocs-backend/internal/bol"
	"exportdocs-backend/internal/documents"
	"exportdocs-backend/internal/shared/telemetry"
	"exportdocs-backend/internal/shared/util"
)

const (
	sheetName = "BOLs"
	pageSize  = 200
)

// DocumentLister lists a client's documents, newest first.
type DocumentLister interface {
	ListByClient(ctx context.Context, clientID string, limit, offset int) ([]documents.Document, error)
}

// Service produces XLSX workbooks from stored BOL data.
type Service struct {
	Documents DocumentLister
}

func NewService(docs DocumentLister) *Service {
	return &Service{Documents: docs}
}

var headers = []string{
	"BOL Number",
	"Booking Number",
	"Carrier Reference",
	"Date of Issue",
	"Vessel",
	"Voyage",
	"Port of Loading",
	"Port of Discharge",
	"Container",
	"Seal",
	"Container Type",
	"Product",
	"Density",
	"Liters",
	"Gallons",
	"Kilograms",
}

// BOLWorkbook returns a workbook with one row per container of each BOL
// document the client owns. A BOL without containers still gets one row.
func (s *Service) BOLWorkbook(ctx context.Context, clientID string) ([]byte, error) {
	start := time.Now()

	docs, err := s.allBols(ctx, clientID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	row := 2
	for _, doc := range docs {
		containers := doc.Bol.Containers
		if len(containers) == 0 {
			containers = []bol.Container{{}}
		}
		for _, c := range containers {
			for col, v := range rowValues(*doc.Bol, c) {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				_ = f.SetCellValue(sheetName, cell, v)
			}
			row++
		}
	}

	_ = f.SetColWidth(sheetName, "A", "C", 20)
	_ = f.SetColWidth(sheetName, "D", "D", 14)
	_ = f.SetColWidth(sheetName, "E", "H", 18)
	_ = f.SetColWidth(sheetName, "I", "L", 16)
	_ = f.SetColWidth(sheetName, "M", "P", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	telemetry.Info("export.bols.ok", map[string]any{
		"client_id":  clientID,
		"documents":  len(docs),
		"rows":       row - 2,
		"elapsed_ms": time.Since(start).Milliseconds(),
		"request_id": telemetry.RequestIDFromContext(ctx),
	})
	return buf.Bytes(), nil
}

func (s *Service) allBols(ctx context.Context, clientID string) ([]documents.Document, error) {
	var out []documents.Document
	for offset := 0; ; offset += pageSize {
		page, err := s.Documents.ListByClient(ctx, clientID, pageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, doc := range page {
			if doc.Type == documents.TypeBOL && doc.Bol != nil {
				out = append(out, doc)
			}
		}
		if len(page) < pageSize {
			return out, nil
		}
	}
}

// rowValues returns cell values in header order. Unset values stay empty
// cells so a measured zero is distinguishable from no measurement.
func rowValues(d bol.Data, c bol.Container) []any {
	date := ""
	if d.DateOfIssue != nil {
		date = d.DateOfIssue.Value
	}
	return []any{
		d.BolNumber,
		str(d.BookingNumber),
		str(d.CarrierReference),
		date,
		str(d.Vessel),
		str(d.Voyage),
		d.PortOfLoading,
		d.PortOfDischarge,
		c.Number,
		c.SealNumber,
		c.Type,
		c.Product.Name,
		num(c.Product.Density),
		num(c.Quantity.Liters),
		num(c.Quantity.Gallons),
		num(c.Quantity.Kilograms),
	}
}

func str(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func num(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

// FileName is the download name of a client's workbook.
func FileName(clientID string) string {
	name, err := util.SanitizeFileName("bols-" + clientID + ".xlsx")
	if err != nil {
		return "bols.xlsx"
	}
	return name
}
