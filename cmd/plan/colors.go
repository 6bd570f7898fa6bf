package main

import "github.com/fatih/color"

var (
	green     = color.New(color.FgGreen).SprintfFunc()
	red       = color.New(color.FgRed).SprintfFunc()
	cyan      = color.New(color.FgCyan).SprintfFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintfFunc()
	boldGreen = color.New(color.FgGreen, color.Bold).SprintfFunc()
)

// signed colours v green when non-negative and red otherwise.
func signed(format string, v float64) string {
	if v < 0 {
		return red(format, v)
	}
	return green(format, v)
}
