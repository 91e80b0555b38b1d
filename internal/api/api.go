// Package api serves the analyzer over Connect RPC.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"connectrpc.com/connect"

	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/config"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/engine"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/logger"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/model"
	"github.com/LF-Decentralized-Trust-labs/verazt-sub002/internal/pass"
)

// AnalyzePath is the procedure path of AnalyzerService.Analyze.
const AnalyzePath = "/verazt.v1.AnalyzerService/Analyze"

// Source is an inline file to analyze. Name is a relative path.
type Source struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// AnalyzeRequest names either inline sources or a directory below the
// server root.
type AnalyzeRequest struct {
	Sources           []Source `json:"sources,omitempty"`
	Path              string   `json:"path,omitempty"`
	SeverityThreshold string   `json:"severityThreshold,omitempty"`
	Rules             []string `json:"rules,omitempty"`
	DisabledPasses    []string `json:"disabledPasses,omitempty"`
	TimeBudgetMs      int      `json:"timeBudgetMs,omitempty"`
}

type AnalyzeResponse struct {
	Findings  []model.Finding `json:"findings"`
	Passes    *pass.Report    `json:"passes,omitempty"`
	ElapsedMs int64           `json:"elapsedMs"`
}

// AnalyzerServiceHandler implements AnalyzerService.
type AnalyzerServiceHandler struct {
	engine *engine.Engine
	// Root bounds the directories a request may name; empty disables
	// path requests.
	Root string
	log  *slog.Logger
}

func NewAnalyzerServiceHandler(e *engine.Engine, root string, log *slog.Logger) *AnalyzerServiceHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &AnalyzerServiceHandler{engine: e, Root: root, log: log}
}

// Analyze scans the request's sources and returns the findings.
func (h *AnalyzerServiceHandler) Analyze(
	ctx context.Context,
	req *connect.Request[AnalyzeRequest],
) (*connect.Response[AnalyzeResponse], error) {
	msg := req.Msg
	if (len(msg.Sources) == 0) == (msg.Path == "") {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("exactly one of sources and path is required"))
	}
	cfg := config.Default()
	if msg.SeverityThreshold != "" {
		cfg.SeverityThreshold = msg.SeverityThreshold
	}
	if msg.TimeBudgetMs > 0 {
		cfg.TimeBudgetMs = msg.TimeBudgetMs
	}
	cfg.Plugins = msg.Rules
	cfg.DisabledPasses = msg.DisabledPasses
	if err := cfg.Validate(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	dir, cleanup, err := h.scanDir(msg)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	res, err := h.engine.ScanWithConfig(ctx, model.ScanRequest{Path: dir}, cfg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, connect.NewError(connect.CodeDeadlineExceeded, err)
		}
		h.log.Error("analyze failed", "err", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	findings := res.Findings
	if findings == nil {
		findings = []model.Finding{}
	}
	return connect.NewResponse(&AnalyzeResponse{
		Findings:  findings,
		Passes:    res.Passes,
		ElapsedMs: res.Elapsed.Milliseconds(),
	}), nil
}

// scanDir resolves the directory to scan, writing inline sources to a
// temporary directory removed by cleanup.
func (h *AnalyzerServiceHandler) scanDir(msg *AnalyzeRequest) (string, func(), error) {
	noop := func() {}
	if msg.Path != "" {
		if h.Root == "" {
			return "", noop, connect.NewError(connect.CodePermissionDenied, errors.New("path requests are disabled"))
		}
		if !filepath.IsLocal(msg.Path) {
			return "", noop, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("path %q escapes the server root", msg.Path))
		}
		return filepath.Join(h.Root, msg.Path), noop, nil
	}
	dir, err := os.MkdirTemp("", "verazt-rpc-")
	if err != nil {
		return "", noop, connect.NewError(connect.CodeInternal, err)
	}
	cleanup := func() { os.RemoveAll(dir) }
	for _, s := range msg.Sources {
		if !filepath.IsLocal(s.Name) {
			cleanup()
			return "", noop, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source name %q is not a relative path", s.Name))
		}
		path := filepath.Join(dir, s.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			cleanup()
			return "", noop, connect.NewError(connect.CodeInternal, err)
		}
		if err := os.WriteFile(path, []byte(s.Content), 0o644); err != nil {
			cleanup()
			return "", noop, connect.NewError(connect.CodeInternal, err)
		}
	}
	return dir, cleanup, nil
}

// JSONCodec lets plain Go structs travel as Connect messages.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// NewAnalyzerServiceHandlerFunc returns the procedure path and its handler.
func NewAnalyzerServiceHandlerFunc(h *AnalyzerServiceHandler, opts ...connect.HandlerOption) (string, *connect.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	return AnalyzePath, connect.NewUnaryHandler(AnalyzePath, h.Analyze, opts...)
}
