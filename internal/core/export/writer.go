package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

// SheetName is the worksheet every Excel export is written to.
const SheetName = "pivot"

// Write checks the limits of target and serializes rs to w.
func Write(w io.Writer, rs *domain.ResultSet, target Target) error {
	if err := Check(len(rs.Rows)+1, len(rs.Columns), target); err != nil {
		return err
	}
	switch target {
	case CSV:
		return WriteCSV(w, rs)
	case Excel:
		return WriteExcel(w, rs)
	}
	return fmt.Errorf("unsupported export format %q", target)
}

// WriteCSV writes a header row followed by every result row.
func WriteCSV(w io.Writer, rs *domain.ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rs.Columns); err != nil {
		return err
	}
	record := make([]string, len(rs.Columns))
	for _, row := range rs.Rows {
		for i, v := range row {
			record[i] = FormatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExcel writes the result set to a single worksheet using the streaming writer.
func WriteExcel(w io.Writer, rs *domain.ResultSet) error {
	if err := Check(len(rs.Rows)+1, len(rs.Columns), Excel); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(rs.Columns))
	for i, c := range rs.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for r, row := range rs.Rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = excelValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// FormatCell renders a value for text output. NULL renders as an empty string.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}

func excelValue(v any) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int64, int, float64, float32, bool, string, time.Time:
		return x
	default:
		return fmt.Sprint(x)
	}
}
