package main

import (
	"os"

	"github.com/fatih/color"

	"AstroOverlap/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		_, _ = color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}
