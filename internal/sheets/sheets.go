// Package sheets moves collection snapshots and form drafts in and out of XLSX workbooks.
package sheets

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
	"github.com/xuri/excelize/v2"
)

const (
	idColumn     = "_id"
	defaultSheet = "Sheet1"
)

var (
	// ErrNoSheets is returned when a workbook has no worksheet to read.
	ErrNoSheets = errors.New("sheets: workbook contains no sheets")
	// ErrNoKnownColumns is returned when the header row names none of the schema fields.
	ErrNoKnownColumns = errors.New("sheets: header names no known fields")
)

// Row is one spreadsheet data row mapped onto form fields.
type Row struct {
	Number int
	Fields map[string]string
}

// Export writes the snapshot as a single-sheet workbook named after the collection.
// The first column holds record identifiers, the rest follow the schema field order.
func Export[R records.Record](w io.Writer, schema records.Schema, items []R) error {
	workbook := excelize.NewFile()
	defer workbook.Close()

	sheet := schema.Kind.Collection()
	if err := workbook.SetSheetName(defaultSheet, sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, 0, len(schema.Fields)+1)
	header = append(header, idColumn)
	for _, field := range schema.Fields {
		header = append(header, field)
	}
	if err := workbook.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for index, item := range items {
		values := item.FieldValues()
		row := make([]interface{}, 0, len(header))
		row = append(row, item.RecordID())
		for _, field := range schema.Fields {
			row = append(row, values[field])
		}
		cell, err := excelize.CoordinatesToCellName(1, index+2)
		if err != nil {
			return err
		}
		if err := workbook.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", index+2, err)
		}
	}

	if _, err := workbook.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReadRows reads the first sheet of a workbook. The header row decides which column feeds
// which field; unknown columns and the identifier column are ignored, blank rows are skipped.
// Returned field maps always carry every schema field.
func ReadRows(r io.Reader, schema records.Schema) ([]Row, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheets
	}
	lines, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(lines) == 0 {
		return nil, ErrNoKnownColumns
	}

	columns := make(map[int]string)
	for index, title := range lines[0] {
		name := strings.TrimSpace(title)
		if name == idColumn || !schema.HasField(name) {
			continue
		}
		columns[index] = name
	}
	if len(columns) == 0 {
		return nil, ErrNoKnownColumns
	}

	rows := make([]Row, 0, len(lines)-1)
	for index, line := range lines[1:] {
		fields := make(map[string]string, len(schema.Fields))
		for _, field := range schema.Fields {
			fields[field] = ""
		}
		blank := true
		for column, field := range columns {
			if column >= len(line) {
				continue
			}
			value := strings.TrimSpace(line[column])
			if value != "" {
				blank = false
			}
			fields[field] = value
		}
		if blank {
			continue
		}
		rows = append(rows, Row{Number: index + 2, Fields: fields})
	}
	return rows, nil
}
