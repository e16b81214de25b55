package generator

import (
	"context"
	"errors"
)

// #region types
// Request is one content generation call.
type Request struct {
	ContentID   string
	Seed        string // empty means no seed
	Inputs      map[string]any
	ModelParams map[string]any
}

// Result is what a generator produced, including the prompt it built so
// that prompt construction can be inspected separately from output.
type Result struct {
	Text   string
	Prompt string
}

// Generator produces content for a request. Implementations must be safe
// for concurrent use.
type Generator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, req Request) (Result, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (Result, error) { return f(ctx, req) }

// #endregion types

// #region errors
// ErrTimeout marks a generation that exceeded its deadline.
var ErrTimeout = errors.New("generation timed out")

// #endregion errors
