// Package export renders reservation lists as spreadsheets.
package export

import (
	"fmt"
	"io"

	"reservas/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Reservas"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{"Hóspede", "E-mail", "Quarto", "Tipo", "Entrada", "Saída", "Status", "Criada em", "ID"}

// WriteXLSX writes one row per reservation, in list order, below a header row.
func WriteXLSX(w io.Writer, list []models.Reservation) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if err := writeHeader(f); err != nil {
		return err
	}

	for i, r := range list {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.NomeHospede,
			r.Email,
			r.Quarto,
			r.TipoQuarto,
			models.FormatDisplayDate(r.DataEntrada),
			models.FormatDisplayDate(r.DataSaida),
			r.Status,
			r.DataCriacao,
			r.ID,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(SheetName, "A", "B", 28)
	_ = f.SetColWidth(SheetName, "C", "H", 14)
	_ = f.SetColWidth(SheetName, lastCol, lastCol, 38)
	if len(list) > 0 {
		_ = f.AutoFilter(SheetName, fmt.Sprintf("A1:%s%d", lastCol, len(list)+1), nil)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &row); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetCellStyle(SheetName, "A1", lastCol+"1", style)
}
