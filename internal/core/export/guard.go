// Package export validates and writes pivot results to files.
package export

import (
	"fmt"
	"strings"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

// Target is an export file format.
type Target string

const (
	CSV   Target = "csv"
	Excel Target = "excel"
)

// Worksheet limits of the Excel file format.
const (
	ExcelMaxRows    = 1_048_576
	ExcelMaxColumns = 16_384
)

// ParseTarget resolves a format name or file extension.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return CSV, nil
	case "excel", "xlsx":
		return Excel, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want csv or xlsx)", s)
}

// Check reports whether rows x cols fits the target. Row counts include the header row.
func Check(rows, cols int, target Target) error {
	if target != Excel {
		return nil
	}
	if rows > ExcelMaxRows {
		return &domain.LimitExceededError{Dimension: "rows", Found: rows, Limit: ExcelMaxRows}
	}
	if cols > ExcelMaxColumns {
		return &domain.LimitExceededError{Dimension: "columns", Found: cols, Limit: ExcelMaxColumns}
	}
	return nil
}
