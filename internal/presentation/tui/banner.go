package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	" _       _        _        ",
	"(_)_ __ | |_ __ _| | _____ ",
	"| | '_ \\| __/ _` | |/ / _ \\",
	"| | | | | || (_| |   <  __/",
	"|_|_| |_|\\__\\__,_|_|\\_\\___|",
}

var bannerColors = []string{"#38bdf8", "#22d3ee", "#2dd4bf", "#34d399", "#4ade80"}

// PrintBanner writes the intake banner to w, colored when w supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(out.Color(bannerColors[i])))
	}
	fmt.Fprintln(w, out.String("  cybercrime complaint intake").Faint())
	fmt.Fprintln(w)
}
