// Package tabular reads the dashboard's source tables from CSV files and
// Excel workbooks into domain.Table values.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/drug-kpi-dashboard/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ErrEmpty is returned for files without a header row.
var ErrEmpty = errors.New("no header row")

const bom = "\ufeff"

// Read loads a table, choosing the reader from the file extension.
func Read(path string) (domain.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, "")
	default:
		return ReadCSV(path)
	}
}

// ReadCSV loads a comma separated file. Rows may be shorter than the header.
func ReadCSV(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, err
	}
	defer f.Close()

	return DecodeCSV(filepath.Base(path), f)
}

// DecodeCSV parses CSV from r, labelling the table with source.
func DecodeCSV(source string, r io.Reader) (domain.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return domain.Table{}, fmt.Errorf("%s: %w", source, err)
	}
	return newTable(source, all)
}

// ReadXLSX loads one worksheet of a workbook. An empty sheet name selects
// the first sheet.
func ReadXLSX(path, sheet string) (domain.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return domain.Table{}, err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return domain.Table{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmpty)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return domain.Table{}, fmt.Errorf("%s: sheet %q: %w", filepath.Base(path), sheet, err)
	}
	return newTable(filepath.Base(path), rows)
}

func newTable(source string, all [][]string) (domain.Table, error) {
	if len(all) == 0 {
		return domain.Table{}, fmt.Errorf("%s: %w", source, ErrEmpty)
	}
	header := all[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return domain.Table{Source: source, Header: header, Rows: all[1:]}, nil
}
