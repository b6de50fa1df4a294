package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/rapport/pkg/domain"
	"github.com/muesli/termenv"
)

// PrintBanner writes the Rapport banner, the version and the chat title to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  ____                              _   ", "#38bdf8"},
		{" |  _ \\ __ _ _ __  _ __   ___  _ __| |_ ", "#22d3ee"},
		{" | |_) / _` | '_ \\| '_ \\ / _ \\| '__| __|", "#2dd4bf"},
		{" |  _ < (_| | |_) | |_) | (_) | |  | |_ ", "#34d399"},
		{" |_| \\_\\__,_| .__/| .__/ \\___/|_|   \\__|", "#4ade80"},
		{"            |_|   |_|                   ", "#a3e635"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintf(w, "  %s %s\n", termenv.String(domain.Title).Bold(), termenv.String("v"+strings.TrimSpace(version)).Faint())
	fmt.Fprintf(w, "  %s\n\n", domain.Subtitle)
}
