package formatter

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
)

// ErrNoTable is returned when a value has no table layout.
var ErrNoTable = errors.New("no table layout for this output, use -o json or -o yaml")

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// Format runs table against an aligning writer.
func (f *TableFormatter) Format(w io.Writer, _ any, table TableFunc, _ FormatOptions) error {
	if table == nil {
		return ErrNoTable
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

// FormatError formats an error as plain text.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "Error: %v\n", err)
	return werr
}

func init() {
	if err := Register(NewTableFormatter()); err != nil {
		fmt.Printf("failed to register table formatter: %v\n", err)
	}
}
