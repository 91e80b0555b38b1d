package analyses

import (
	"math/big"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/solidity"
)

// TypeIndex records declared types and folded compile-time constants per
// contract. Lookups see inherited declarations.
type TypeIndex struct {
	symbols *SymbolTable
	// StateTypes maps contract, then state variable, to its type.
	StateTypes map[string]map[string]string
	// Constants maps contract, then constant state variable, to its value.
	Constants map[string]map[string]*big.Int
	// Locals maps Contract.function, then parameter or named return, to
	// its type.
	Locals map[string]map[string]string
}

// StateType returns the type of the state variable name visible in contract.
func (ti *TypeIndex) StateType(contract, name string) (string, bool) {
	for _, c := range ti.symbols.Linearize(contract) {
		if t, ok := ti.StateTypes[c.Name][name]; ok {
			return t, true
		}
	}
	return "", false
}

// Constant returns the value of the constant name visible in contract.
func (ti *TypeIndex) Constant(contract, name string) (*big.Int, bool) {
	for _, c := range ti.symbols.Linearize(contract) {
		if v, ok := ti.Constants[c.Name][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Env returns a constant environment for contract.
func (ti *TypeIndex) Env(contract string) solidity.Env {
	return func(name string) (*big.Int, bool) { return ti.Constant(contract, name) }
}

func buildTypes(st *SymbolTable) *TypeIndex {
	ti := &TypeIndex{
		symbols:    st,
		StateTypes: map[string]map[string]string{},
		Constants:  map[string]map[string]*big.Int{},
		Locals:     map[string]map[string]string{},
	}
	for name, c := range st.Contracts {
		types := map[string]string{}
		for _, v := range c.StateVars {
			types[v.Name] = v.Type
		}
		ti.StateTypes[name] = types
		ti.Constants[name] = map[string]*big.Int{}
		for _, fn := range c.Functions {
			locals := map[string]string{}
			for _, p := range append(append([]solidity.Param(nil), fn.Params...), fn.Returns...) {
				if p.Name != "" {
					locals[p.Name] = p.Type
				}
			}
			ti.Locals[name+"."+fn.Name] = locals
		}
	}
	// Constants may refer to each other in any order; fold until nothing
	// changes.
	for changed := true; changed; {
		changed = false
		for name, c := range st.Contracts {
			for _, v := range c.StateVars {
				if !v.Constant || len(v.Value) == 0 {
					continue
				}
				if _, done := ti.Constants[name][v.Name]; done {
					continue
				}
				if val, ok := solidity.EvalConst(v.Value, ti.Env(name)); ok {
					ti.Constants[name][v.Name] = val
					changed = true
				}
			}
		}
	}
	return ti
}

func TypeIndexPass() pass.Analysis {
	return pass.NewFunc(pass.Info{
		ID:          pass.TypeIndex,
		Name:        "Type index",
		Description: "Records declared types and folds constant state variables",
		Level:       pass.LevelContract,
		Requires:    []pass.ID{pass.SymbolTable},
	}, func(ctx *pass.Context) error {
		st, err := pass.RequireArtifact[*SymbolTable](ctx, pass.TypeIndex, KeySymbols)
		if err != nil {
			return err
		}
		ctx.RecordTraversal("ast")
		ctx.Store(KeyTypes, buildTypes(st))
		return nil
	})
}
