package analyses

import (
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

// Symbol is a function together with its enclosing declarations.
type Symbol struct {
	Unit     *solidity.SourceUnit
	Contract *solidity.Contract
	Func     *solidity.Function
}

// QualifiedName is Contract.function.
func (s Symbol) QualifiedName() string { return s.Contract.Name + "." + s.Func.Name }

// SymbolTable indexes the contracts and functions of every source unit.
type SymbolTable struct {
	Contracts map[string]*solidity.Contract
	Units     map[string]*solidity.SourceUnit
	// Functions maps Contract.function to the first overload declared.
	Functions map[string]Symbol
	// Duplicates lists contract names declared more than once.
	Duplicates []string
}

// Linearize returns name followed by its bases, depth first, each contract
// once. Unknown bases are skipped.
func (t *SymbolTable) Linearize(name string) []*solidity.Contract {
	var out []*solidity.Contract
	seen := map[string]bool{}
	stack := []string{name}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c := t.Contracts[n]
		if c == nil || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, c)
		for i := len(c.Bases) - 1; i >= 0; i-- {
			stack = append(stack, c.Bases[i])
		}
	}
	return out
}

// Resolve finds the function fn as seen from contract, searching the
// contract first and then its bases.
func (t *SymbolTable) Resolve(contract, fn string) (Symbol, bool) {
	for _, c := range t.Linearize(contract) {
		if s, ok := t.Functions[c.Name+"."+fn]; ok {
			return s, true
		}
	}
	return Symbol{}, false
}

func buildSymbols(units []*solidity.SourceUnit) *SymbolTable {
	t := &SymbolTable{
		Contracts: map[string]*solidity.Contract{},
		Units:     map[string]*solidity.SourceUnit{},
		Functions: map[string]Symbol{},
	}
	for _, u := range units {
		for _, c := range u.Contracts {
			if _, dup := t.Contracts[c.Name]; dup {
				t.Duplicates = append(t.Duplicates, c.Name)
				continue
			}
			t.Contracts[c.Name] = c
			t.Units[c.Name] = u
			for _, fn := range c.Functions {
				s := Symbol{Unit: u, Contract: c, Func: fn}
				if _, ok := t.Functions[s.QualifiedName()]; !ok {
					t.Functions[s.QualifiedName()] = s
				}
			}
		}
	}
	return t
}

func SymbolTablePass() pass.Analysis {
	return pass.NewFunc(pass.Info{
		ID:          pass.SymbolTable,
		Name:        "Symbol table",
		Description: "Indexes contracts, inheritance and functions",
		Level:       pass.LevelProgram,
	}, func(ctx *pass.Context) error {
		ctx.RecordTraversal("ast")
		ctx.Store(KeySymbols, buildSymbols(pass.SourcesOf[*solidity.SourceUnit](ctx)))
		return nil
	})
}
