// Package sheet reads profile URLs from an Excel workbook and writes
// extracted phone numbers back into it, in place.
package sheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmpty indicates the workbook's first sheet holds no rows at all.
var ErrEmpty = errors.New("workbook has no rows")

const (
	urlColumn    = 1 // column A
	headerRow    = 1
	phone1Header = "Phone1"
	phone2Header = "Phone2"
)

// Workbook is an open spreadsheet. URLs are read from column A; results go
// into the Phone1/Phone2 columns, created next to the existing data when the
// headers are absent. Save rewrites the backing file.
type Workbook struct {
	path      string
	file      *excelize.File
	sheet     string
	rows      int
	phone1Col int
	phone2Col int
}

// Open loads the workbook at path and locates or creates the phone columns.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		f.Close()
		return nil, ErrEmpty
	}

	w := &Workbook{path: path, file: f, sheet: sheet, rows: len(rows)}
	if err := w.ensurePhoneColumns(rows[0]); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// ensurePhoneColumns finds Phone1/Phone2 in the header row, appending them
// after the last used column when missing.
func (w *Workbook) ensurePhoneColumns(header []string) error {
	next := len(header) + 1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case phone1Header:
			w.phone1Col = i + 1
		case phone2Header:
			w.phone2Col = i + 1
		}
	}
	if w.phone1Col == 0 {
		w.phone1Col = next
		next++
		if err := w.setCell(w.phone1Col, headerRow, phone1Header); err != nil {
			return err
		}
	}
	if w.phone2Col == 0 {
		w.phone2Col = next
		if err := w.setCell(w.phone2Col, headerRow, phone2Header); err != nil {
			return err
		}
	}
	return nil
}

// RowCount returns the number of rows the sheet held when opened, header
// included.
func (w *Workbook) RowCount() int { return w.rows }

// URL returns the trimmed profile URL in column A of the given 1-based row.
func (w *Workbook) URL(row int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(urlColumn, row)
	if err != nil {
		return "", err
	}
	value, err := w.file.GetCellValue(w.sheet, cell)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", cell, err)
	}
	return strings.TrimSpace(value), nil
}

// SetPhones writes both phone cells for the given 1-based row.
func (w *Workbook) SetPhones(row int, phone1, phone2 string) error {
	if err := w.setCell(w.phone1Col, row, phone1); err != nil {
		return err
	}
	return w.setCell(w.phone2Col, row, phone2)
}

func (w *Workbook) setCell(col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := w.file.SetCellValue(w.sheet, cell, value); err != nil {
		return fmt.Errorf("writing %s: %w", cell, err)
	}
	return nil
}

// Save rewrites the workbook file in place.
func (w *Workbook) Save() error {
	if err := w.file.Save(); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	return nil
}

// Close releases the workbook without saving.
func (w *Workbook) Close() error {
	return w.file.Close()
}
