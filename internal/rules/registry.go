package rules

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/danielpatrickdp/quest-forensics/internal/geometry"
)

// #region registry
// Registry is an immutable state -> Rule table.
type Registry struct {
	rules map[string]Rule
}

// expectedAssistCount is how many states require an assist in any ruleset.
const expectedAssistCount = 4

// NewRegistry validates rules and builds a Registry.
func NewRegistry(rules []Rule) (*Registry, error) {
	states := geometry.AllStates()
	if len(rules) != len(states) {
		return nil, fmt.Errorf("registry: want %d rules, got %d", len(states), len(rules))
	}

	table := make(map[string]Rule, len(rules))
	assist := 0
	for _, r := range rules {
		if !slices.Contains(states, r.State) {
			return nil, fmt.Errorf("registry: unknown state %q", r.State)
		}
		if _, dup := table[r.State]; dup {
			return nil, fmt.Errorf("registry: duplicate rule for %s", r.State)
		}
		if err := validateRule(r); err != nil {
			return nil, fmt.Errorf("registry: %s: %w", r.State, err)
		}
		if r.RequiresAssist {
			assist++
		}
		table[r.State] = cloneRule(r)
	}
	if assist != expectedAssistCount {
		return nil, fmt.Errorf("registry: want %d assist rules, got %d", expectedAssistCount, assist)
	}
	return &Registry{rules: table}, nil
}

// MustLoad is NewRegistry that panics on an invariant violation.
func MustLoad(rules []Rule) *Registry {
	reg, err := NewRegistry(rules)
	if err != nil {
		panic(err)
	}
	return reg
}

// Get returns the rule for state or an error wrapping ErrInvalidState.
func (r *Registry) Get(state string) (Rule, error) {
	rule, ok := r.rules[state]
	if !ok {
		return Rule{}, fmt.Errorf("get rule %q: %w", state, ErrInvalidState)
	}
	return cloneRule(rule), nil
}

// TryGet returns the rule for state, or nil for an empty or unknown state.
func (r *Registry) TryGet(state string) *Rule {
	rule, ok := r.rules[state]
	if !ok {
		return nil
	}
	c := cloneRule(rule)
	return &c
}

// States lists the registered states in enumeration order.
func (r *Registry) States() []string {
	out := make([]string, 0, len(r.rules))
	for _, s := range geometry.AllStates() {
		if _, ok := r.rules[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// #endregion registry

// #region default-registry
var canonical = MustLoad(canonicalRules())

// Default returns the canonical registry, built at process start.
func Default() *Registry { return canonical }

// GetRule looks up state in the canonical registry.
func GetRule(state string) (Rule, error) { return canonical.Get(state) }

// TryGetRule looks up state in the canonical registry without failing.
func TryGetRule(state string) *Rule { return canonical.TryGet(state) }

// #endregion default-registry

// #region validate-rule
func validateRule(r Rule) error {
	if r.Version != canonicalVersion {
		return fmt.Errorf("version %d, want %d", r.Version, canonicalVersion)
	}
	if len(r.Inputs) < 2 {
		return fmt.Errorf("%d inputs, want at least 2", len(r.Inputs))
	}

	seen := make(map[string]bool, len(r.Inputs))
	var derived []string
	for _, in := range r.Inputs {
		if in.Key == "" {
			return fmt.Errorf("input with empty key")
		}
		if seen[in.Key] {
			return fmt.Errorf("duplicate input %q", in.Key)
		}
		seen[in.Key] = true
		if !in.Type.valid() {
			return fmt.Errorf("input %q: unknown type %q", in.Key, in.Type)
		}
		if in.Type == InputChoice && len(in.Options) == 0 {
			return fmt.Errorf("input %q: choice without options", in.Key)
		}
		if in.Required {
			derived = append(derived, in.Key)
		}
	}
	if len(derived) == 0 {
		return fmt.Errorf("no required inputs")
	}

	declared := slices.Clone(r.RequiredInputKeys)
	sort.Strings(declared)
	sort.Strings(derived)
	if !slices.Equal(declared, derived) {
		return fmt.Errorf("requiredInputKeys %v do not match required inputs %v", declared, derived)
	}
	return nil
}

func cloneRule(r Rule) Rule {
	out := r
	out.Inputs = make([]InputDef, len(r.Inputs))
	for i, in := range r.Inputs {
		in.Options = slices.Clone(in.Options)
		out.Inputs[i] = in
	}
	out.RequiredInputKeys = slices.Clone(r.RequiredInputKeys)
	sort.Strings(out.RequiredInputKeys)
	return out
}

// #endregion validate-rule

// #region validate-inputs
// Validate checks a payload against the rule: every required key present and
// non-empty, and every known key of the declared type.
func (r Rule) Validate(inputs map[string]any) error {
	verr := &ValidationError{State: r.State}
	for _, in := range r.Inputs {
		v, ok := inputs[in.Key]
		if !ok || v == nil || v == "" {
			if in.Required {
				verr.Missing = append(verr.Missing, in.Key)
			}
			continue
		}
		if !matchesType(in, v) {
			verr.Invalid = append(verr.Invalid, in.Key)
		}
	}
	if len(verr.Missing) == 0 && len(verr.Invalid) == 0 {
		return nil
	}
	return verr
}

func matchesType(in InputDef, v any) bool {
	switch in.Type {
	case InputText:
		_, ok := v.(string)
		return ok
	case InputBoolean:
		_, ok := v.(bool)
		return ok
	case InputNumber:
		switch n := v.(type) {
		case int, int32, int64:
			return true
		case float64:
			return !math.IsNaN(n) && !math.IsInf(n, 0)
		}
		return false
	case InputChoice:
		s, ok := v.(string)
		return ok && slices.Contains(in.Options, s)
	}
	return false
}

// #endregion validate-inputs

// #region placeholders
// PlaceholderInputs returns a payload that satisfies every required input,
// used to seed fixture quests.
func (r Rule) PlaceholderInputs() map[string]any {
	out := make(map[string]any, len(r.RequiredInputKeys))
	for _, in := range r.Inputs {
		if !in.Required {
			continue
		}
		switch in.Type {
		case InputText:
			out[in.Key] = in.Label
		case InputNumber:
			out[in.Key] = float64(1)
		case InputBoolean:
			out[in.Key] = true
		case InputChoice:
			out[in.Key] = in.Options[0]
		}
	}
	return out
}

// #endregion placeholders
