// Package checks implements the Pre-flight (G) and Post-flight (H) engines:
// a uniform, named, ordered check pipeline that gates every mutating tool
// and verifies its outcome afterward. The shape is identical for both; only
// what gets registered (and whether failures unwind anything) differs,
// matching the teacher's optional-capability-interface style — a single
// Check contract, with each concrete check supplying only the one method it
// needs.
package checks

import (
	"fmt"

	"github.com/devsolo-dev/devsolo/internal/model"
)

// Context is the read-only bundle every check's Execute function receives.
// It is intentionally an interface{}-free struct of already-resolved
// collaborators and flags; individual checks type-assert nothing — they
// just read the fields they need. createContext (Tool Base phase 3) is
// solely responsible for populating one of these; checks themselves never
// mutate it.
type Context struct {
	// Resolved facts about the repository and session, computed once by
	// the calling tool's context derivation phase.
	Facts map[string]any

	// ResolvedOptions carries the option id chosen for a previously
	// suspended prompt check, keyed by check id. Empty on a first pass.
	ResolvedOptions map[string]string

	// Auto causes prompt checks to resolve via their autoRecommended
	// option instead of suspending.
	Auto bool
}

// Fact reads a typed fact out of the context, returning the zero value and
// false if absent or of the wrong type.
func Fact[T any](c *Context, key string) (T, bool) {
	var zero T
	v, ok := c.Facts[key]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Check is one named predicate, evaluated in pre- or post-flight.
type Check struct {
	ID       string
	Name     string
	Category string
	Execute  func(*Context) model.CheckResult
}

// Registry holds every known check, keyed by id. Tools declare which ids to
// run; an id not present here fails loudly rather than being silently
// skipped.
type Registry struct {
	checks map[string]Check
}

func NewRegistry() *Registry { return &Registry{checks: map[string]Check{}} }

// Register adds a check, panicking on a duplicate id — a programmer error
// caught at package init, not a runtime condition.
func (r *Registry) Register(c Check) {
	if _, exists := r.checks[c.ID]; exists {
		panic(fmt.Sprintf("checks: duplicate check id %q", c.ID))
	}
	r.checks[c.ID] = c
}

// Engine runs a named, ordered subset of a Registry's checks against a
// Context.
type Engine struct {
	registry *Registry
}

func NewEngine(r *Registry) *Engine { return &Engine{registry: r} }

// Outcome is the result of running one batch of checks.
type Outcome struct {
	Results   []model.CheckResult
	AllPassed bool
	Suspended bool // true if a prompt-level check is awaiting a decision
}

// Run executes ids in declaration order against ctx. It never
// short-circuits: every check runs, so the caller sees the complete
// picture. A prompt-level result, when not resolved via
// ctx.ResolvedOptions and ctx.Auto is false, marks the outcome Suspended —
// callers surface that to the transport and wait for a follow-up call.
func (e *Engine) Run(ids []string, ctx *Context) (Outcome, error) {
	results := make([]model.CheckResult, 0, len(ids))
	allPassed := true
	suspended := false

	for _, id := range ids {
		check, ok := e.registry.checks[id]
		if !ok {
			return Outcome{}, fmt.Errorf("checks: unknown check id %q", id)
		}
		result := check.Execute(ctx)

		if result.Level == model.LevelPrompt {
			resolved, handled := resolvePrompt(ctx, result)
			if handled {
				result = resolved
			} else {
				suspended = true
			}
		}

		results = append(results, result)
		if !result.Passed() {
			allPassed = false
		}
	}

	return Outcome{Results: results, AllPassed: allPassed && !suspended, Suspended: suspended}, nil
}

// resolvePrompt turns a prompt-level result into a pass/fail result when
// either an explicit decision is present in ctx.ResolvedOptions or
// ctx.Auto selects the recommended option.
func resolvePrompt(ctx *Context, result model.CheckResult) (model.CheckResult, bool) {
	var chosenID string
	if id, ok := ctx.ResolvedOptions[result.ID]; ok {
		chosenID = id
	} else if ctx.Auto {
		for _, opt := range result.Options {
			if opt.AutoRecommended {
				chosenID = opt.ID
				break
			}
		}
	}
	if chosenID == "" {
		return result, false
	}
	for _, opt := range result.Options {
		if opt.ID == chosenID {
			return model.CheckResult{
				ID: result.ID, Name: result.Name, Level: model.LevelPass,
				Message: fmt.Sprintf("resolved via option %q: %s", opt.ID, opt.Label),
			}, true
		}
	}
	return result, false
}
