package goanalysis

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"slices"
	"sort"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// BuildSSA constructs an SSA program for loaded packages.
func BuildSSA(pkgs []*packages.Package) (*ssa.Program, []*ssa.Package) {
	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()
	return prog, ssaPkgs
}

// BuildSource type-checks a single file and builds its SSA package. Only
// standard library imports resolve.
func BuildSource(filename, src string) (*ssa.Package, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, err
	}
	conf := types.Config{Importer: importer.Default()}
	files := []*ast.File{f}
	pkg := types.NewPackage(f.Name.Name, f.Name.Name)
	ssaPkg, _, err := ssautil.BuildPackage(&conf, fset, pkg, files, ssa.SanityCheckFunctions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return ssaPkg, nil
}

// SourceFunctions returns the functions declared in pkgs, including methods
// and closures, ordered by name. Synthetic wrappers and functions without a
// body are left out. The packages may come from different programs.
func SourceFunctions(pkgs ...*ssa.Package) []*ssa.Function {
	want := map[*ssa.Package]bool{}
	var progs []*ssa.Program
	for _, p := range pkgs {
		if p == nil {
			continue
		}
		want[p] = true
		if !slices.Contains(progs, p.Prog) {
			progs = append(progs, p.Prog)
		}
	}
	var out []*ssa.Function
	for _, prog := range progs {
		for fn := range ssautil.AllFunctions(prog) {
			if fn.Synthetic != "" || len(fn.Blocks) == 0 || !want[fn.Pkg] {
				continue
			}
			out = append(out, fn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
