package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-export/internal/platform"
)

func TestEngine_Default(t *testing.T) {
	ctx := context.Background()

	engine, err := NewEngine(ctx, "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		input  Input
		action Action
		reason string
	}{
		{
			name:   "fresh session",
			input:  Input{CheckGearRules: true, ForceExport: false},
			action: Proceed,
		},
		{
			name:   "enabled rule aborts",
			input:  Input{CheckGearRules: true, Rules: []Rule{{Name: "dicom-mr-classifier"}}},
			action: Abort,
			reason: "export project has enabled gear rules: dicom-mr-classifier",
		},
		{
			name:   "disabled rules are ignored",
			input:  Input{CheckGearRules: true, Rules: []Rule{{Name: "old", Disabled: true}}},
			action: Proceed,
		},
		{
			name:   "rule check switched off",
			input:  Input{CheckGearRules: false, Rules: []Rule{{Name: "classifier"}}},
			action: Proceed,
		},
		{
			name:   "exported without force skips",
			input:  Input{Exported: true, ForceExport: false},
			action: Skip,
			reason: "session is tagged EXPORTED and force_export is false",
		},
		{
			name:   "exported with force proceeds",
			input:  Input{Exported: true, ForceExport: true},
			action: Proceed,
		},
		{
			name:   "rules win over skip",
			input:  Input{CheckGearRules: true, Exported: true, Rules: []Rule{{Name: "a"}, {Name: "b"}}},
			action: Abort,
			reason: "export project has enabled gear rules: a, b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := engine.Evaluate(ctx, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestLoadEngine_CustomPolicy(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "strict.rego")

	custom := `package session_export

import rego.v1

default decision := {"action": "proceed", "reason": ""}

decision := {"action": "abort", "reason": "rules present"} if {
	count(input.rules) > 0
}
`
	require.NoError(t, os.WriteFile(path, []byte(custom), 0o644))

	engine, err := LoadEngine(ctx, path)
	require.NoError(t, err)

	d, err := engine.Evaluate(ctx, Input{CheckGearRules: false, Rules: []Rule{{Name: "x", Disabled: true}}})
	require.NoError(t, err)
	assert.Equal(t, Abort, d.Action)

	_, err = LoadEngine(ctx, filepath.Join(t.TempDir(), "missing.rego"))
	require.Error(t, err)
}

func TestNewEngine_InvalidPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package broken\n\ndecision := {")
	require.Error(t, err)
}

func TestEvaluate_UnknownAction(t *testing.T) {
	ctx := context.Background()

	engine, err := NewEngine(ctx, "package session_export\n\nimport rego.v1\n\ndecision := {\"action\": \"maybe\"}\n")
	require.NoError(t, err)

	_, err = engine.Evaluate(ctx, Input{})
	require.Error(t, err)
}

func TestRulesFrom(t *testing.T) {
	got := RulesFrom([]platform.Rule{{ID: "r1", Name: "classifier", Disabled: true}})
	assert.Equal(t, []Rule{{Name: "classifier", Disabled: true}}, got)
}
