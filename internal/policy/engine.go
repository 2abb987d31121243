// Package policy decides, before any file is touched, whether an export
// run proceeds, is skipped or aborts. The decision is a Rego policy
// evaluated with OPA; the built-in policy can be replaced from a file.
package policy

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"

	"session-export/internal/platform"
)

// DefaultPolicy is the built-in preflight policy.
//
//go:embed preflight.rego
var DefaultPolicy string

const query = "data.session_export.decision"

// Action is the outcome of a preflight evaluation.
type Action string

const (
	Proceed Action = "proceed"
	Skip    Action = "skip"
	Abort   Action = "abort"
)

// Input is what the policy sees.
type Input struct {
	CheckGearRules bool   `json:"check_gear_rules"`
	ForceExport    bool   `json:"force_export"`
	Exported       bool   `json:"exported"`
	Rules          []Rule `json:"rules"`
}

// Rule is the policy view of a gear rule.
type Rule struct {
	Name     string `json:"name"`
	Disabled bool   `json:"disabled"`
}

// RulesFrom converts platform rules.
func RulesFrom(rules []platform.Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, Rule{Name: r.Name, Disabled: r.Disabled})
	}

	return out
}

// Decision is the evaluated outcome.
type Decision struct {
	Action Action
	Reason string
}

// Engine is the prepared preflight policy.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares policy source; an empty source uses DefaultPolicy.
func NewEngine(ctx context.Context, source string) (*Engine, error) {
	if source == "" {
		source = DefaultPolicy
	}

	r := rego.New(
		rego.Query(query),
		rego.Module("preflight.rego", source),
	)

	q, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare preflight policy: %w", err)
	}

	return &Engine{query: q}, nil
}

// LoadEngine prepares the policy stored at path, or the built-in one when
// path is empty.
func LoadEngine(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, "")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}

	return NewEngine(ctx, string(data))
}

// Evaluate runs the policy. A policy that yields nothing proceeds.
func (e *Engine) Evaluate(ctx context.Context, in Input) (Decision, error) {
	if in.Rules == nil {
		in.Rules = []Rule{}
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate preflight policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Action: Proceed}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Decision{}, fmt.Errorf("preflight policy returned %T, want object", results[0].Expressions[0].Value)
	}

	action, _ := obj["action"].(string)
	reason, _ := obj["reason"].(string)

	switch Action(action) {
	case Proceed, Skip, Abort:
		return Decision{Action: Action(action), Reason: reason}, nil
	default:
		return Decision{}, fmt.Errorf("preflight policy returned unknown action %q", action)
	}
}
