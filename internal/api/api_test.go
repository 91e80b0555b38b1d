package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/go-cmp/cmp"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/engine"
)

const vault = `pragma solidity 0.8.20;

contract Vault {
    mapping(address => uint256) balances;

    function withdraw(uint256 amount) external {
        (bool ok, ) = msg.sender.call{value: amount}("");
        require(ok, "failed");
        balances[msg.sender] -= amount;
    }
}
`

func newClient(t *testing.T, root string) *connect.Client[AnalyzeRequest, AnalyzeResponse] {
	t.Helper()
	srv := httptest.NewServer(NewMux(NewAnalyzerServiceHandler(engine.New(nil), root, nil)))
	t.Cleanup(srv.Close)
	return connect.NewClient[AnalyzeRequest, AnalyzeResponse](http.DefaultClient, srv.URL+AnalyzePath, connect.WithCodec(JSONCodec{}))
}

func ruleLines(resp *connect.Response[AnalyzeResponse]) []string {
	var out []string
	for _, f := range resp.Msg.Findings {
		out = append(out, f.RuleID+"@"+f.File)
	}
	return out
}

func TestAnalyzeInlineSources(t *testing.T) {
	client := newClient(t, "")
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(&AnalyzeRequest{
		Sources: []Source{{Name: "src/Vault.sol", Content: vault}},
	}))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if diff := cmp.Diff([]string{"SOL-REENTRANCY@src/Vault.sol"}, ruleLines(resp)); diff != "" {
		t.Errorf("findings (-want +got):\n%s", diff)
	}
	if f := resp.Msg.Findings[0]; f.StartLine != 9 {
		t.Errorf("StartLine = %d, want 9", f.StartLine)
	}
	if resp.Msg.Passes == nil || !resp.Msg.Passes.Success {
		t.Errorf("passes = %+v", resp.Msg.Passes)
	}

	resp, err = client.CallUnary(context.Background(), connect.NewRequest(&AnalyzeRequest{
		Sources:           []Source{{Name: "Vault.sol", Content: vault}},
		SeverityThreshold: "critical",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Msg.Findings == nil || len(resp.Msg.Findings) != 0 {
		t.Errorf("findings above critical = %v", resp.Msg.Findings)
	}
}

func TestAnalyzePath(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "proj"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "proj", "Vault.sol"), []byte(vault), 0o644); err != nil {
		t.Fatal(err)
	}
	resp, err := newClient(t, root).CallUnary(context.Background(), connect.NewRequest(&AnalyzeRequest{Path: "proj"}))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"SOL-REENTRANCY@Vault.sol"}, ruleLines(resp)); diff != "" {
		t.Errorf("findings (-want +got):\n%s", diff)
	}
}

func TestAnalyzeRejects(t *testing.T) {
	tests := []struct {
		name string
		root string
		req  *AnalyzeRequest
		code connect.Code
	}{
		{"empty", "", &AnalyzeRequest{}, connect.CodeInvalidArgument},
		{"both", "/srv", &AnalyzeRequest{Path: "a", Sources: []Source{{Name: "a.sol"}}}, connect.CodeInvalidArgument},
		{"escaping source", "", &AnalyzeRequest{Sources: []Source{{Name: "../x.sol"}}}, connect.CodeInvalidArgument},
		{"escaping path", "/srv", &AnalyzeRequest{Path: "../etc"}, connect.CodeInvalidArgument},
		{"paths disabled", "", &AnalyzeRequest{Path: "proj"}, connect.CodePermissionDenied},
		{"bad severity", "", &AnalyzeRequest{Sources: []Source{{Name: "a.sol"}}, SeverityThreshold: "urgent"}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newClient(t, tt.root).CallUnary(context.Background(), connect.NewRequest(tt.req))
			var cerr *connect.Error
			if !errors.As(err, &cerr) || cerr.Code() != tt.code {
				t.Errorf("error = %v, want code %v", err, tt.code)
			}
		})
	}
}
