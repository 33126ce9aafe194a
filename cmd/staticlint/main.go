// Package main implements a multichecker for this repository: standard
// analyzers from golang.org/x/tools plus a custom analyzer that forbids
// direct calls to os.Exit in main.main.
//
// Usage:
//
//	go run cmd/staticlint/main.go ./...
package main

import (
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"

	"github.com/sbilibin2017/promsink/cmd/staticlint/analyzers"
)

func main() {
	multichecker.Main(
		copylock.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		analyzers.NoOsExitMainAnalyzer,
	)
}
