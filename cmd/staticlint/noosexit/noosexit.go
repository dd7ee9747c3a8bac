// Package noosexit reports process termination calls made directly from
// main.main. Exiting there skips deferred cleanup such as storage close and
// logger sync.
package noosexit

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "noosexit",
	Doc:  "prohibits os.Exit and log.Fatal* in main.main",
	Run:  run,
}

// forbidden maps a package path to the functions that terminate the process.
var forbidden = map[string]map[string]bool{
	"os":  {"Exit": true},
	"log": {"Fatal": true, "Fatalf": true, "Fatalln": true},
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) {
			continue
		}

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Name.Name != "main" || fn.Recv != nil || fn.Body == nil {
				continue
			}

			ast.Inspect(fn.Body, func(n ast.Node) bool {
				// Closures may run after main returns, only the main body counts.
				if _, isLiteral := n.(*ast.FuncLit); isLiteral {
					return false
				}

				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}

				if name, found := terminatingCall(pass, call); found {
					pass.Reportf(call.Pos(), "avoid calling %s in main.main", name)
				}

				return true
			})
		}
	}

	return nil, nil
}

func terminatingCall(pass *analysis.Pass, call *ast.CallExpr) (string, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return "", false
	}

	fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil {
		return "", false
	}

	// Methods such as (*log.Logger).Fatal are left alone.
	if signature, isSignature := fn.Type().(*types.Signature); isSignature && signature.Recv() != nil {
		return "", false
	}

	if !forbidden[fn.Pkg().Path()][fn.Name()] {
		return "", false
	}

	return fn.Pkg().Path() + "." + fn.Name(), true
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/")
}
