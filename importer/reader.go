package importer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one data row keyed by header name.
type Row map[string]string

// FileData is a fully-read import file. Reading is eager: import files are
// human-exported reports, not unbounded streams.
type FileData struct {
	Headers []string
	Rows    []Row
}

// ReadRows loads a CSV or XLSX file into header-keyed rows. The first row is
// the header row. Any failure here is file-level fatal.
func ReadRows(path string) (*FileData, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	default:
		return readCSV(path)
	}
}

func readCSV(path string) (*FileData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fromRecords(path, records)
}

func readXLSX(path string) (*FileData, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in %s", path)
	}
	records, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return fromRecords(path, records)
}

func fromRecords(path string, records [][]string) (*FileData, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no header row in %s", path)
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := &FileData{Headers: headers}
	for _, record := range records[1:] {
		row := make(Row, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			}
		}
		data.Rows = append(data.Rows, row)
	}
	return data, nil
}

// RequireColumns checks that every named column is present in the header row.
// A missing required column rejects the whole file before any batch runs.
func (f *FileData) RequireColumns(names ...string) error {
	present := make(map[string]struct{}, len(f.Headers))
	for _, h := range f.Headers {
		present[h] = struct{}{}
	}

	var missing []string
	for _, name := range names {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Field returns the first non-empty value among the given header names,
// trimmed. QuickBooks exports are inconsistent about exact header spelling
// (e.g. "Product/Service  Amount" with a double space), so callers pass every
// known variant.
func (r Row) Field(names ...string) string {
	for _, name := range names {
		if v, ok := r[name]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
