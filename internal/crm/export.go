package crm

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const pipelineSheet = "Pipeline"

var pipelineHeaders = []string{
	"ID", "Title", "Customer", "Stage", "Priority", "Amount", "Currency",
	"Contact", "Email", "Phone", "Salesperson", "PO Number", "Expected Close", "Created",
}

// ExportPipeline writes every deal as an XLSX workbook to w.
func (s *Service) ExportPipeline(ctx context.Context, w io.Writer) error {
	deals, err := s.exportRows(ctx)
	if err != nil {
		return fmt.Errorf("export pipeline: %w", err)
	}
	f, err := buildPipelineWorkbook(deals)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

func buildPipelineWorkbook(deals []Deal) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", pipelineSheet); err != nil {
		f.Close()
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	headerRow := make([]interface{}, len(pipelineHeaders))
	for i, h := range pipelineHeaders {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(pipelineSheet, "A1", &headerRow); err != nil {
		f.Close()
		return nil, err
	}
	last, _ := excelize.ColumnNumberToName(len(pipelineHeaders))
	_ = f.SetCellStyle(pipelineSheet, "A1", last+"1", header)

	for i, d := range deals {
		expected := ""
		if d.ExpectedClose != nil {
			expected = d.ExpectedClose.Format("2006-01-02")
		}
		amount, _ := d.Amount.Float64()
		row := []interface{}{
			d.ID, d.Title, d.CustomerName, d.Stage, d.Priority, amount, d.Currency,
			d.Contact, d.Email, d.Phone, d.Salesperson, d.PONumber, expected,
			d.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(pipelineSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	_ = f.SetColWidth(pipelineSheet, "B", "C", 32)
	return f, nil
}
