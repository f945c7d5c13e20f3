package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
)

// header prints an underlined section title.
func header(w io.Writer, text string) {
	bold.Fprintln(w, text)
	fmt.Fprintln(w, strings.Repeat("-", len(text)))
}

func success(w io.Writer, format string, args ...any) {
	green.Fprintf(w, "✓ "+format+"\n", args...)
}

func warning(w io.Writer, format string, args ...any) {
	yellow.Fprintf(w, "! "+format+"\n", args...)
}

// trendColor picks the color of a forecast trend. Rising spend is bad news.
func trendColor(trend string) *color.Color {
	switch trend {
	case "increasing":
		return red
	case "decreasing":
		return green
	}
	return color.New()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
