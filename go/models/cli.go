package models

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const usageWidth = 80

// wrap splits s into lines no wider than width, breaking on spaces.
func wrap(s string, width int) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(s) {
		if line != "" && len(line)+1+len(word) > width {
			lines = append(lines, line)
			line = ""
		}
		if line != "" {
			line += " "
		}
		line += word
	}
	return append(lines, line)
}

// PrintFlags writes one aligned row per flag, with defaults in parens and the
// usage text wrapped to fit the terminal.
func PrintFlags(w io.Writer, flags []*flag.Flag) {
	left := make([]string, len(flags))
	col := 0
	for i, f := range flags {
		left[i] = "-" + f.Name
		switch f.DefValue {
		case "", "false", "0":
		default:
			left[i] += " (" + f.DefValue + ")"
		}
		if len(left[i]) > col {
			col = len(left[i])
		}
	}
	pad := strings.Repeat(" ", col+4)
	for i, f := range flags {
		for j, line := range wrap(f.Usage, usageWidth-len(pad)) {
			if j == 0 {
				fmt.Fprintf(w, "  %-*s  %s\n", col, left[i], line)
			} else {
				fmt.Fprintf(w, "%s%s\n", pad, line)
			}
		}
	}
}
