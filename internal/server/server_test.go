package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/devsolo-dev/devsolo/internal/checks"
	"github.com/devsolo-dev/devsolo/internal/model"
	"github.com/devsolo-dev/devsolo/internal/tool"
)

// fakeInput and fakeTool exercise Dispatch without needing a real
// repository-backed Deps.
type fakeInput struct {
	Name string `json:"name"`
}

type fakeTool struct{}

func (fakeTool) Name() string           { return "fake" }
func (fakeTool) SkipInitCheck() bool    { return true }
func (fakeTool) PreFlightChecks() []string  { return nil }
func (fakeTool) PostFlightChecks() []string { return nil }

func (fakeTool) CollectMissingParameters(_ context.Context, in any) (tool.CollectResult, error) {
	return tool.CollectResult{Collected: true}, nil
}

func (fakeTool) CreateContext(_ context.Context, in any) (*checks.Context, error) {
	return &checks.Context{}, nil
}

func (fakeTool) Execute(_ context.Context, _ *checks.Context) (*model.ToolResult, error) {
	return &model.ToolResult{Success: true}, nil
}

func newTestServer() *Server {
	s := &Server{
		base:  tool.NewBase(checks.NewRegistry()),
		tools: map[string]entry{},
	}
	s.register("fake", fakeTool{}, func() any { return &fakeInput{} })
	return s
}

func TestDispatch_UnknownTool(t *testing.T) {
	s := newTestServer()
	result, err := s.Dispatch(context.Background(), "nope", nil)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if result.Success || result.Kind != model.ErrUnknownTool {
		t.Errorf("got %+v, want an ErrUnknownTool failure", result)
	}
}

func TestDispatch_MalformedJSON(t *testing.T) {
	s := newTestServer()
	result, err := s.Dispatch(context.Background(), "fake", json.RawMessage(`{not json`))
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	if result.Success || result.Kind != model.ErrMissingParameter {
		t.Errorf("got %+v, want an ErrMissingParameter failure", result)
	}
}

func TestDispatch_Success(t *testing.T) {
	s := newTestServer()
	result, err := s.Dispatch(context.Background(), "fake", json.RawMessage(`{"name":"x"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Errorf("got %+v, want success", result)
	}
}
