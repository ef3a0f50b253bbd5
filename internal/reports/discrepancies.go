// Package reports renders operator downloads.
package reports

import (
	"fmt"
	"io"

	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the discrepancy workbook.
const (
	SheetDiscrepancies = "Discrepancias"
	SheetUnpublished   = "Encargos sin publicar"
	SheetWithoutLedger = "Publicados sin encargo"
)

// WriteDiscrepancies writes report as an .xlsx workbook with one sheet per section.
func WriteDiscrepancies(w io.Writer, report *models.DiscrepancyReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetDiscrepancies); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	rows := [][]interface{}{}
	for _, ref := range report.References() {
		for _, d := range report.Discrepancies[ref] {
			rows = append(rows, []interface{}{d.Reference, d.Field, d.LedgerValue, d.PublishedValue})
		}
	}
	if err := writeSheet(f, SheetDiscrepancies, header,
		[]interface{}{"Ref", "Campo", "Valor encargo", "Valor web"}, rows); err != nil {
		return err
	}

	if err := writeRefSheet(f, SheetUnpublished, header, report.UnpublishedMandates); err != nil {
		return err
	}
	if err := writeRefSheet(f, SheetWithoutLedger, header, report.PublishedWithoutMandate); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRefSheet(f *excelize.File, sheet string, header int, refs []string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add sheet %q: %w", sheet, err)
	}
	rows := make([][]interface{}, 0, len(refs))
	for _, ref := range refs {
		rows = append(rows, []interface{}{ref})
	}
	return writeSheet(f, sheet, header, []interface{}{"Ref"}, rows)
}

func writeSheet(f *excelize.File, sheet string, header int, columns []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &columns); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, header); err != nil {
		return fmt.Errorf("failed to style header of %q: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+2, sheet, err)
		}
	}

	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return fmt.Errorf("failed to size columns of %q: %w", sheet, err)
	}
	return nil
}
