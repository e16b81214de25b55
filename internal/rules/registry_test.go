package rules

import (
	"errors"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/quest-forensics/internal/geometry"
)

func TestRegistry_Completeness(t *testing.T) {
	for _, state := range geometry.AllStates() {
		rule := TryGetRule(state)
		require.NotNil(t, rule, "state %s", state)
		assert.Equal(t, 1, rule.Version)
		assert.GreaterOrEqual(t, len(rule.Inputs), 2)

		var derived []string
		for _, in := range rule.Inputs {
			if in.Required {
				derived = append(derived, in.Key)
			}
		}
		sort.Strings(derived)
		declared := slices.Clone(rule.RequiredInputKeys)
		sort.Strings(declared)
		assert.Equal(t, derived, declared, "state %s", state)
	}
}

func TestRegistry_AssistPartition(t *testing.T) {
	assist, plain := 0, 0
	for _, state := range geometry.AllStates() {
		rule, err := GetRule(state)
		require.NoError(t, err)
		g, err := geometry.ParseState(state)
		require.NoError(t, err)
		if rule.RequiresAssist {
			assist++
			assert.Equal(t, geometry.Exterior, g.Direction, "canonical assist state %s", state)
		} else {
			plain++
		}
	}
	assert.Equal(t, 4, assist)
	assert.Equal(t, 4, plain)
}

func TestTryGetRule_UnknownIsNil(t *testing.T) {
	assert.Nil(t, TryGetRule(""))
	assert.Nil(t, TryGetRule("NOT_A_STATE"))
}

func TestGetRule_InvalidState(t *testing.T) {
	_, err := GetRule("NOT_A_STATE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestGetRule_ReturnsCopy(t *testing.T) {
	a, err := GetRule("SEEK_DARE_EXTERIOR")
	require.NoError(t, err)
	a.Inputs[0].Key = "mutated"
	a.RequiredInputKeys[0] = "mutated"

	b, err := GetRule("SEEK_DARE_EXTERIOR")
	require.NoError(t, err)
	assert.Equal(t, "challenge", b.Inputs[0].Key)
	assert.Equal(t, "challenge", b.RequiredInputKeys[0])
}

func TestNewRegistry_InvariantViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]Rule) []Rule
	}{
		{"missing rule", func(r []Rule) []Rule { return r[:7] }},
		{"duplicate state", func(r []Rule) []Rule { r[1].State = r[0].State; return r }},
		{"unknown state", func(r []Rule) []Rule { r[0].State = "HIDE_TRUTH"; return r }},
		{"wrong version", func(r []Rule) []Rule { r[2].Version = 2; return r }},
		{"too few inputs", func(r []Rule) []Rule { r[3].Inputs = r[3].Inputs[:1]; return r }},
		{"required keys mismatch", func(r []Rule) []Rule {
			r[4].RequiredInputKeys = []string{"question"}
			return r
		}},
		{"no required input", func(r []Rule) []Rule {
			for i := range r[6].Inputs {
				r[6].Inputs[i].Required = false
			}
			r[6].RequiredInputKeys = nil
			return r
		}},
		{"assist count", func(r []Rule) []Rule { r[0].RequiresAssist = true; return r }},
		{"bad input type", func(r []Rule) []Rule { r[5].Inputs[2].Type = "date"; return r }},
		{"choice without options", func(r []Rule) []Rule {
			r[4].Inputs[1].Options = nil
			return r
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := tt.mutate(freshRules())
			_, err := NewRegistry(rules)
			assert.Error(t, err)
			assert.Panics(t, func() { MustLoad(rules) })
		})
	}
}

func TestNewRegistry_DivergentAssistAllowed(t *testing.T) {
	rules := freshRules()
	// Move assist from an EXTERIOR state to an INTERIOR one; count stays 4.
	rules[1].RequiresAssist = false
	rules[0].RequiresAssist = true
	reg, err := NewRegistry(rules)
	require.NoError(t, err)
	assert.True(t, reg.TryGet("HIDE_TRUTH_INTERIOR").RequiresAssist)
	assert.Equal(t, geometry.AllStates(), reg.States())
}

func TestRule_Validate(t *testing.T) {
	rule, err := GetRule("SEEK_TRUTH_INTERIOR")
	require.NoError(t, err)

	assert.NoError(t, rule.Validate(map[string]any{"question": "why", "depth": "deep"}))

	err = rule.Validate(map[string]any{"depth": "bottomless", "notes": 4})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"question"}, verr.Missing)
	assert.Equal(t, []string{"depth", "notes"}, verr.Invalid)
	assert.Contains(t, err.Error(), "missing question")
}

func TestRule_ValidateNumberAndBoolean(t *testing.T) {
	rule, err := GetRule("HIDE_DARE_EXTERIOR")
	require.NoError(t, err)
	assert.NoError(t, rule.Validate(map[string]any{"avoidance": "calls", "witness": "sam", "public": true}))
	assert.Error(t, rule.Validate(map[string]any{"avoidance": "calls", "witness": "sam", "public": "yes"}))

	rule, err = GetRule("HIDE_DARE_INTERIOR")
	require.NoError(t, err)
	assert.NoError(t, rule.Validate(map[string]any{"avoidance": "mail", "intensity": 7.0}))
	assert.NoError(t, rule.Validate(map[string]any{"avoidance": "mail", "intensity": 7}))
	assert.Error(t, rule.Validate(map[string]any{"avoidance": "mail", "intensity": "7"}))
}

func TestRule_PlaceholderInputsValidate(t *testing.T) {
	for _, state := range Default().States() {
		rule, err := GetRule(state)
		require.NoError(t, err)
		in := rule.PlaceholderInputs()
		assert.NoError(t, rule.Validate(in), state)
		assert.Len(t, in, len(rule.RequiredInputKeys), state)
	}
}

func freshRules() []Rule {
	src := canonicalRules()
	out := make([]Rule, len(src))
	for i, r := range src {
		out[i] = cloneRule(r)
	}
	return out
}
