// Package roster parses student roster files (.xlsx or CSV) into enrollment
// rows: column 1 is the student name, column 2 an optional guardian, and an
// optional header row is recognized by the word "Nome".
package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	enc "github.com/bmoreira/tesouraria/internal/encoding"
	"github.com/bmoreira/tesouraria/internal/graduation"
)

// Parse dispatches on the file extension. CSV content is charset-sniffed
// first; spreadsheets go through excelize. Structurally bad rows are not
// parse errors: they surface later as per-row enrollment errors.
func Parse(r io.Reader, filename string) ([]graduation.EnrollRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return parseExcel(r)
	default:
		return parseCSV(r)
	}
}

func parseExcel(r io.Reader) ([]graduation.EnrollRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}

	return toEnrollRows(rows), nil
}

func parseCSV(r io.Reader) ([]graduation.EnrollRow, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return toEnrollRows(rows), nil
}

func toEnrollRows(rows [][]string) []graduation.EnrollRow {
	var out []graduation.EnrollRow

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}

		// Header landmark: a first row naming the "Nome" column is skipped.
		if i == 0 && isHeader(row) {
			continue
		}

		r := graduation.EnrollRow{
			Line: i + 1,
			Name: strings.TrimSpace(row[0]),
		}
		if len(row) > 1 {
			r.Guardian = strings.TrimSpace(row[1])
		}

		out = append(out, r)
	}

	return out
}

func isHeader(row []string) bool {
	for _, cell := range row {
		if strings.EqualFold(strings.TrimSpace(cell), "nome") {
			return true
		}
	}

	return false
}
