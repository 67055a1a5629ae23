package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/artpar/rentdesk/core/formatter"
)

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

// render prints v with the formatter selected by --output. The table
// layout is used only by the table formatter.
func render(v any, table formatter.TableFunc) error {
	f, err := formatter.Lookup(outputFormat)
	if err != nil {
		return err
	}
	return f.Format(os.Stdout, v, table, formatter.FormatOptions{})
}

// tableOutput reports whether output is for humans.
func tableOutput() bool {
	return outputFormat == "" || outputFormat == "table"
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: must be a number", s)
	}
	return id, nil
}

// parseDate accepts RFC 3339 timestamps or plain dates.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC 3339", s)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
