package main

import (
	"fmt"
	"io"

	"hashtools/internal/preflight"
	"hashtools/internal/progress"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

const statusLabelWidth = 28

func renderCheck(result preflight.Result, colorize bool) string {
	label, color := "OK", ansiGreen
	if !result.Passed {
		label, color = "FAIL", ansiRed
	}
	line := fmt.Sprintf("  %-*s [%s] %s", statusLabelWidth, result.Name+":", label, result.Detail)
	if colorize {
		return color + line + ansiReset
	}
	return line
}

func writeChecks(w io.Writer, results []preflight.Result) {
	colorize := progress.IsTerminal(w)
	for _, r := range results {
		fmt.Fprintln(w, renderCheck(r, colorize))
	}
}
