// Package ui renders terminal output for the csvpivot commands.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/jeffhb60/csv-pivot-app/internal/core/export"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	InfoColor      = lipgloss.Color("#00D9FF")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// Output is where non-error messages go.
var Output io.Writer = os.Stdout

// PrintHeader prints a boxed title with a subtitle.
func PrintHeader(title string, subtitle string) {
	header := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 2).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				TitleStyle.Render(title),
				SecondaryStyle.Render(subtitle),
			),
		)

	fmt.Fprintln(Output, header)
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Fprintln(Output, SuccessStyle.Render("✓ "+message))
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("✗ "+message))
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Fprintln(Output, WarningStyle.Render("⚠ "+message))
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	fmt.Fprintln(Output, InfoStyle.Render("ℹ "+message))
}

// PrintTable prints a table using pterm
func PrintTable(headers []string, rows [][]string) error {
	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithWriter(Output).WithData(tableData).Render()
}

// PrintResult prints a result set as a table followed by its row count.
func PrintResult(rs *domain.ResultSet) error {
	if len(rs.Columns) == 0 {
		PrintWarning("Query returned no columns")
		return nil
	}
	if err := PrintTable(rs.Columns, TableRows(rs)); err != nil {
		return err
	}
	fmt.Fprintln(Output, SecondaryStyle.Render(fmt.Sprintf("%d row(s)", len(rs.Rows))))
	return nil
}

// TableRows renders every cell of rs as text.
func TableRows(rs *domain.ResultSet) [][]string {
	rows := make([][]string, len(rs.Rows))
	for i, r := range rs.Rows {
		cells := make([]string, len(r))
		for j, v := range r {
			cells[j] = export.FormatCell(v)
		}
		rows[i] = cells
	}
	return rows
}

// PrintSchema prints the columns of a schema with their native and semantic types.
func PrintSchema(s *domain.Schema) error {
	rows := make([][]string, len(s.Columns))
	for i, c := range s.Columns {
		rows[i] = []string{c.Name, c.NativeType, string(c.Type)}
	}
	return PrintTable([]string{"Column", "Native type", "Type"}, rows)
}

// PrintMarkdown renders markdown content
func PrintMarkdown(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}

	out, err := r.Render(content)
	if err != nil {
		return err
	}

	fmt.Fprint(Output, out)
	return nil
}

// PrintSpinner creates a spinner and returns it
func PrintSpinner(message string) (*pterm.SpinnerPrinter, error) {
	return pterm.DefaultSpinner.WithRemoveWhenDone(true).WithWriter(Output).Start(message)
}

// ColorPrint uses fatih/color for simple colored output
func ColorPrint(c *color.Color, format string, args ...interface{}) {
	c.Fprintf(Output, format, args...)
}

// GetColorPrinters returns color printers for common use cases
func GetColorPrinters() map[string]*color.Color {
	return map[string]*color.Color{
		"success": color.New(color.FgGreen, color.Bold),
		"error":   color.New(color.FgRed, color.Bold),
		"warning": color.New(color.FgYellow, color.Bold),
		"info":    color.New(color.FgCyan),
		"primary": color.New(color.FgCyan, color.Bold),
	}
}
