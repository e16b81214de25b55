package rules

import (
	"errors"
	"fmt"
	"strings"
)

// #region input-type
// InputType tags the value shape an input expects.
type InputType string

const (
	InputText    InputType = "text"
	InputNumber  InputType = "number"
	InputBoolean InputType = "boolean"
	InputChoice  InputType = "choice"
)

func (t InputType) valid() bool {
	switch t {
	case InputText, InputNumber, InputBoolean, InputChoice:
		return true
	}
	return false
}

// #endregion input-type

// #region rule
// InputDef describes one input a geometry state asks for.
type InputDef struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     InputType `json:"type"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"` // choice only
}

// Rule is the contract attached to one geometry state.
// RequiredInputKeys is sorted and equals the keys of the required Inputs.
type Rule struct {
	State             string     `json:"state"`
	Version           int        `json:"version"`
	Inputs            []InputDef `json:"inputs"`
	RequiredInputKeys []string   `json:"requiredInputKeys"`
	RequiresAssist    bool       `json:"requiresAssist"`
}

// #endregion rule

// #region errors
// ErrInvalidState is returned by GetRule for an unknown state label.
var ErrInvalidState = errors.New("invalid geometry state")

// ValidationError lists the inputs that do not satisfy a rule.
type ValidationError struct {
	State   string
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ","))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ","))
	}
	return fmt.Sprintf("inputs for %s: %s", e.State, strings.Join(parts, "; "))
}

// #endregion errors
