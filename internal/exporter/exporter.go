// Package exporter writes feature tables to CSV and Excel files.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"StockFeatures/internal/features"
	"StockFeatures/internal/model"
	"StockFeatures/internal/ticker"
)

// Supported export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// DateColumn heads the index column in every export.
const DateColumn = "date"

// SheetName is the worksheet holding the table in XLSX exports.
const SheetName = "features"

// WriteCSV writes the table with a leading date column. Missing values
// are written as empty cells.
func WriteCSV(w io.Writer, t *features.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(append([]string{DateColumn}, t.Columns()...)); err != nil {
		return err
	}
	cols := t.Columns()
	for i, ts := range t.Index() {
		rec := make([]string, 0, len(cols)+1)
		rec = append(rec, ts.Format(time.DateOnly))
		for _, c := range cols {
			rec = append(rec, formatFloat(t.Value(c, i)))
		}
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", ts.Format(time.DateOnly), err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes the table to a single-sheet workbook.
func WriteXLSX(w io.Writer, t *features.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	header := []interface{}{DateColumn}
	for _, c := range t.Columns() {
		header = append(header, c)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	cols := t.Columns()
	for i, ts := range t.Index() {
		row := make([]interface{}, 0, len(cols)+1)
		row = append(row, ts.Format(time.DateOnly))
		for _, c := range cols {
			v := t.Value(c, i)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row = append(row, nil)
				continue
			}
			row = append(row, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %s: %w", ts.Format(time.DateOnly), err)
		}
	}
	return f.Write(w)
}

// Path returns dir/YYYY-MM-DD_TICKER_features.<format>.
func Path(dir, symbol string, asOf time.Time, format string) string {
	name := fmt.Sprintf("%s_%s_features.%s", asOf.Format(time.DateOnly), ticker.Parse(symbol, "").SaveFormat(), format)
	return filepath.Join(dir, name)
}

// ExportFile writes t under dir in the given format and returns the path.
func ExportFile(dir, symbol string, asOf time.Time, format string, t *features.Table) (string, error) {
	var write func(io.Writer, *features.Table) error
	switch format {
	case FormatCSV, "":
		format, write = FormatCSV, WriteCSV
	case FormatXLSX:
		write = WriteXLSX
	default:
		return "", fmt.Errorf("export format %q: %w", format, model.ErrInvalidParameter)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	path := Path(dir, symbol, asOf, format)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	if err := write(file, t); err != nil {
		return "", fmt.Errorf("export %s: %w", path, err)
	}
	return path, file.Close()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
