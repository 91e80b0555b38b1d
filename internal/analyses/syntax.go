package analyses

import (
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

// Pragma is the compiler version constraint of one source unit.
type Pragma struct {
	File       string
	Line       int
	Constraint string
	// Version is the lowest version named by the constraint in canonical
	// semver form, or "" when none parses.
	Version string
	// Floating is set when the constraint admits more than one version.
	Floating bool
}

// Missing reports whether the unit has no version pragma.
func (p Pragma) Missing() bool { return p.Constraint == "" }

// Before reports whether the pragma allows versions older than v.
func (p Pragma) Before(v string) bool {
	return p.Version != "" && semver.Compare(p.Version, v) < 0
}

var (
	reVersion = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)
	reExact   = regexp.MustCompile(`^=?\s*\d+\.\d+\.\d+$`)
)

func parsePragma(u *solidity.SourceUnit) Pragma {
	p := Pragma{File: u.Path, Line: u.PragmaLine, Constraint: strings.TrimSpace(u.Pragma)}
	if p.Missing() {
		return p
	}
	if m := reVersion.FindString(p.Constraint); m != "" {
		p.Version = semver.Canonical("v" + m)
	}
	p.Floating = !reExact.MatchString(p.Constraint)
	return p
}

func SyntaxPass() pass.Analysis {
	return pass.NewFunc(pass.Info{
		ID:          pass.SyntaxAnalysis,
		Name:        "Syntax analysis",
		Description: "Parses compiler version pragmas",
		Level:       pass.LevelProgram,
	}, func(ctx *pass.Context) error {
		ctx.RecordTraversal("ast")
		var out []Pragma
		for _, u := range pass.SourcesOf[*solidity.SourceUnit](ctx) {
			out = append(out, parsePragma(u))
		}
		ctx.Store(KeyPragmas, out)
		return nil
	})
}
