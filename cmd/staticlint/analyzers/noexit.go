// Package analyzers contains custom analyzers for static analysis.
package analyzers

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
)

// NoOsExitMainAnalyzer disallows direct calls to os.Exit in the main
// function of the main package, enforcing centralized exit handling.
var NoOsExitMainAnalyzer = &analysis.Analyzer{
	Name: "noosexitmain",
	Doc:  "disallow direct calls to os.Exit in main.main function",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		for _, decl := range file.Decls {
			funcDecl, ok := decl.(*ast.FuncDecl)
			if !ok || funcDecl.Name.Name != "main" {
				continue
			}

			ast.Inspect(funcDecl.Body, func(n ast.Node) bool {
				callExpr, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}

				selectorExpr, ok := callExpr.Fun.(*ast.SelectorExpr)
				if !ok {
					return true
				}

				ident, ok := selectorExpr.X.(*ast.Ident)
				if !ok {
					return true
				}

				if ident.Name == "os" && selectorExpr.Sel.Name == "Exit" {
					obj := pass.TypesInfo.Uses[ident]
					if obj == nil {
						return true
					}
					if pkgName, ok := obj.(*types.PkgName); ok {
						if pkgName.Imported().Path() == "os" {
							pass.Reportf(callExpr.Pos(), "direct call to os.Exit in main.main is forbidden")
						}
					}
				}
				return true
			})
		}
	}
	return nil, nil
}
