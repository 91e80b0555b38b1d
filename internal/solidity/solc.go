package solidity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/cache"
)

// ASTCompact is the subset of `solc --ast-compact-json` output we read.
type ASTCompact struct {
	AbsolutePath    string           `json:"absolutePath"`
	ExportedSymbols map[string][]int `json:"exportedSymbols"`
	Nodes           []map[string]any `json:"nodes"`
}

// ContractNames lists the ContractDefinition nodes of the unit.
func (a *ASTCompact) ContractNames() []string {
	var out []string
	for _, n := range a.Nodes {
		if n["nodeType"] == "ContractDefinition" {
			if name, ok := n["name"].(string); ok {
				out = append(out, name)
			}
		}
	}
	return out
}

// ParseWithSolc runs solc to obtain the compact AST of path. Results are
// cached by solc binary and file content.
func ParseWithSolc(ctx context.Context, c *cache.Cache, path, solcPath string) (*ASTCompact, error) {
	if solcPath == "" {
		solcPath = "solc"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	key := cache.Key("solc-ast", solcPath, abs, string(src))
	if cached, ok := c.Load(key); ok {
		var ast ASTCompact
		if err := json.Unmarshal(cached, &ast); err == nil {
			return &ast, nil
		}
	}
	out, err := exec.CommandContext(ctx, solcPath, "--ast-compact-json", abs).Output()
	if err != nil {
		return nil, fmt.Errorf("solc %s: %w", path, err)
	}
	ast, err := decodeSolcOutput(out)
	if err != nil {
		return nil, fmt.Errorf("solc %s: %w", path, err)
	}
	if data, err := json.Marshal(ast); err == nil {
		_ = c.Store(key, data)
	}
	return ast, nil
}

// decodeSolcOutput accepts either a bare AST object or solc's legacy
// "======= file =======" banner followed by the JSON.
func decodeSolcOutput(out []byte) (*ASTCompact, error) {
	for i, b := range out {
		if b == '{' {
			out = out[i:]
			break
		}
	}
	var ast ASTCompact
	if err := json.Unmarshal(out, &ast); err != nil {
		return nil, err
	}
	return &ast, nil
}
