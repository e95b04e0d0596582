package hyperfile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mrforecast/domain/hyper"

	"github.com/xuri/excelize/v2"
)

// Export writes the table in the format implied by the file extension
func Export(path string, table *hyper.Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return WriteXLSX(path, "Sheet1", table)
	case ".csv":
		return writeFile(path, func(w io.Writer) error { return WriteCSV(w, table) })
	default:
		return writeFile(path, func(w io.Writer) error { return WriteText(w, table) })
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteText writes one whitespace-separated draw per line
func WriteText(w io.Writer, table *hyper.Table) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# n_pop=%d draws=%d fingerprint=%s\n", table.NPop(), table.Len(), table.Fingerprint())
	for i := 0; i < table.Len(); i++ {
		bw.WriteString(strings.Join(formatRow(table.Raw(i)), " "))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteCSV writes a header row followed by one draw per record
func WriteCSV(w io.Writer, table *hyper.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(table.Layout())); err != nil {
		return err
	}
	for i := 0; i < table.Len(); i++ {
		if err := cw.Write(formatRow(table.Raw(i))); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the table to a worksheet with a header row
func WriteXLSX(path, sheet string, table *hyper.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}

	header := Header(table.Layout())
	cells := make([]interface{}, len(header))
	for j, h := range header {
		cells[j] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &cells); err != nil {
		return err
	}
	for i := 0; i < table.Len(); i++ {
		raw := table.Raw(i)
		row := make([]interface{}, len(raw))
		for j, v := range raw {
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// Header names the columns of a layout
func Header(l hyper.Layout) []string {
	names := make([]string, 0, l.Columns())
	names = append(names, "intercept")
	for i := 0; i < l.NPop; i++ {
		names = append(names, fmt.Sprintf("slope_%d", i))
	}
	for i := 0; i < l.NPop; i++ {
		names = append(names, fmt.Sprintf("scatter_%d", i))
	}
	for i := 0; i < l.NPop-1; i++ {
		names = append(names, fmt.Sprintf("transition_%d", i))
	}
	return names
}

func formatRow(raw []float64) []string {
	out := make([]string, len(raw))
	for j, v := range raw {
		out[j] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out
}
