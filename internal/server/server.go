// Package server exposes the single entry point every transport (MCP
// dispatcher, CLI, hook scripts) calls through: Dispatch maps a tool name
// and raw JSON arguments to a ToolResult, running the named tool through
// the Tool Base pipeline.
package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/tool"
	"github.com/devsolo-dev/devsolo/internal/tools"
)

// Server wires every registered workflow tool behind one dispatch point.
type Server struct {
	base  *tool.Base
	deps  *tools.Deps
	tools map[string]entry
}

type entry struct {
	t          tool.Tool
	newInput   func() any
}

// New builds a Server with every workflow tool registered, and its own
// check catalog/engine.
func New() (*Server, error) {
	deps, err := tools.NewDeps()
	if err != nil {
		return nil, err
	}
	registry := checks.BuildCatalog()
	base := tool.NewBase(registry)

	s := &Server{base: base, deps: deps, tools: map[string]entry{}}
	s.register("launch", tools.NewLaunch(deps), func() any { return &tools.LaunchInput{} })
	s.register("commit", tools.NewCommit(deps), func() any { return &tools.CommitInput{} })
	s.register("ship", tools.NewShip(deps), func() any { return &tools.ShipInput{} })
	s.register("swap", tools.NewSwap(deps), func() any { return &tools.SwapInput{} })
	s.register("abort", tools.NewAbort(deps), func() any { return &tools.AbortInput{} })
	s.register("hotfix", tools.NewHotfix(deps), func() any { return &tools.HotfixInput{} })
	s.register("cleanup", tools.NewCleanup(deps), func() any { return &tools.CleanupInput{} })
	return s, nil
}

func (s *Server) register(name string, t tool.Tool, newInput func() any) {
	s.tools[name] = entry{t: t, newInput: newInput}
}

// Dispatch runs toolName against args, never returning an error for a
// recognized tool whose execution failed — that failure is folded into the
// ToolResult. The only error return is for a transport-level problem:
// unknown tool name or malformed JSON.
func (s *Server) Dispatch(ctx context.Context, toolName string, args json.RawMessage) (*model.ToolResult, error) {
	e, ok := s.tools[toolName]
	if !ok {
		return &model.ToolResult{Success: false, Kind: model.ErrUnknownTool,
			Errors: []string{fmt.Sprintf("unknown tool %q", toolName)}}, nil
	}

	input := e.newInput()
	if len(args) > 0 {
		if err := json.Unmarshal(args, input); err != nil {
			return &model.ToolResult{Success: false, Kind: model.ErrMissingParameter,
				Errors: []string{fmt.Sprintf("invalid arguments for %s: %v", toolName, err)}}, nil
		}
	}

	return s.base.Run(ctx, e.t, input), nil
}
