package hyperfile

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mrforecast/domain/core"
	"mrforecast/domain/hyper"

	"github.com/xuri/excelize/v2"
)

// File formats understood by the reader
const (
	FormatText = "text" // whitespace separated, '#' comments (.out, .txt, .dat)
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Reader loads a posterior table from a file, one draw per line or row
type Reader struct {
	filePath string
	fileType string
	sheet    string
}

// NewReader picks the format from the file extension
func NewReader(filePath string) *Reader {
	fileType := FormatText
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		fileType = FormatCSV
	case ".xlsx":
		fileType = FormatXLSX
	}
	return &Reader{filePath: filePath, fileType: fileType, sheet: "Sheet1"}
}

// WithSheet selects the worksheet read from an xlsx file
func (r *Reader) WithSheet(sheet string) *Reader {
	r.sheet = sheet
	return r
}

// Format returns the detected file format
func (r *Reader) Format() string {
	return r.fileType
}

// Load reads and validates the table. A zero layout infers the population
// count from the column count.
func (r *Reader) Load(ctx context.Context, layout hyper.Layout) (*hyper.Table, error) {
	log.Printf("[HyperFile] Reading %s table: %s", r.fileType, r.filePath)
	start := time.Now()

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, core.NewConfigurationError("hyperparameter file not found: %s", r.filePath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		raw [][]float64
		err error
	)
	switch r.fileType {
	case FormatCSV:
		raw, err = r.readCSV()
	case FormatXLSX:
		raw, err = r.readXLSX()
	default:
		raw, err = r.readText()
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", r.filePath, core.ErrEmptyTable)
	}

	if layout.NPop == 0 {
		layout, err = hyper.LayoutForColumns(len(raw[0]))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.filePath, err)
		}
	}

	table, err := hyper.NewTable(layout, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.filePath, err)
	}

	log.Printf("[HyperFile] Loaded %d draws x %d columns (n_pop=%d, fingerprint %s) in %.2fms",
		table.Len(), layout.Columns(), layout.NPop, table.Fingerprint(),
		float64(time.Since(start).Nanoseconds())/1e6)
	return table, nil
}

func (r *Reader) readText() ([][]float64, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open hyperparameter file: %w", err)
	}
	defer file.Close()
	return ParseText(file)
}

// ParseText parses whitespace-separated draws. Blank lines and lines
// starting with '#' are skipped.
func ParseText(in io.Reader) ([][]float64, error) {
	var rows [][]float64
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		row, err := parseFields(strings.Fields(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hyperparameter file: %w", err)
	}
	return rows, nil
}

func (r *Reader) readCSV() ([][]float64, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return parseRecords(records)
}

func (r *Reader) readXLSX() ([][]float64, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	records, err := f.GetRows(r.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.sheet, err)
	}
	return parseRecords(records)
}

// parseRecords converts spreadsheet-style records. A first record that does
// not parse as numbers is treated as a header.
func parseRecords(records [][]string) ([][]float64, error) {
	rows := make([][]float64, 0, len(records))
	for i, record := range records {
		if isBlank(record) {
			continue
		}
		row, err := parseFields(record)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseFields(fields []string) ([]float64, error) {
	row := make([]float64, len(fields))
	for j, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, core.NewConfigurationError("column %d: %q is not a number", j+1, field)
		}
		row[j] = v
	}
	return row, nil
}

func isBlank(record []string) bool {
	for _, s := range record {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
