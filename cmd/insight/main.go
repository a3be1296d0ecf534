package main

import (
	"os"

	"github.com/joywufn/portfolio-insight/backend/cmd/insight/commands"
)

// main is the entry point for the Portfolio Insight CLI
// ⭐ Unified CLI entry point: go run ./cmd/insight [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
