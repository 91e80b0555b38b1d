package goanalysis

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/tools/go/packages"
)

// Module is a Go module directory whose packages are analyzed.
type Module struct {
	Dir string
}

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax |
	packages.NeedTypes | packages.NeedTypesInfo | packages.NeedDeps | packages.NeedImports

// LoadPackages loads every package under dir with syntax and type
// information. Packages with errors are reported together.
func LoadPackages(ctx context.Context, dir string) ([]*packages.Package, error) {
	cfg := &packages.Config{Context: ctx, Mode: loadMode, Dir: dir, Tests: false}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, err
	}
	var errs []error
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			errs = append(errs, fmt.Errorf("%s: %s", p.PkgPath, e.Msg))
		}
	})
	return pkgs, errors.Join(errs...)
}

// File is a single Go source file built without a module. Only standard
// library imports resolve.
type File struct {
	Name string
	Src  string
}
