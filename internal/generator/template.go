package generator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/danielpatrickdp/quest-forensics/internal/fingerprint"
	"github.com/danielpatrickdp/quest-forensics/internal/sampler"
)

// #region template
var (
	openings = []string{
		"At first light", "When the house is quiet", "Before you sleep tonight",
		"On your next walk", "In the middle of the afternoon", "Once the day's work is done",
	}
	actions = []string{
		"write down", "say aloud", "sketch", "share with one person", "sit with", "question",
	}
	closings = []string{
		"Notice what changes.", "Let it be unfinished.", "Keep the record.",
		"Return to it tomorrow.", "Mark what surprised you.",
	}
)

// Template is a deterministic offline generator. The prompt is built from
// the content id, the canonical inputs and model params; the text is drawn
// from phrase tables with a stream seeded by the prompt and the seed.
type Template struct{}

// Generate implements Generator.
func (Template) Generate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	prompt, err := BuildPrompt(req)
	if err != nil {
		return Result{}, err
	}

	rng := sampler.NewFromString(fingerprint.String(prompt) + "|" + req.Seed)
	pick := func(xs []string) string { return xs[int(rng.Float64()*float64(len(xs)))] }

	focus := "what is in front of you"
	if keys := textValues(req.Inputs); len(keys) > 0 {
		focus = pick(keys)
	}
	text := fmt.Sprintf("%s, %s %s. %s", pick(openings), pick(actions), focus, pick(closings))
	return Result{Text: text, Prompt: prompt}, nil
}

// BuildPrompt renders the prompt a generator would send for req.
func BuildPrompt(req Request) (string, error) {
	inputs, err := fingerprint.StableStringify(orEmpty(req.Inputs))
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}
	params, err := fingerprint.StableStringify(orEmpty(req.ModelParams))
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Write one short quest step for %s.\n", req.ContentID)
	fmt.Fprintf(&b, "Inputs: %s\n", inputs)
	fmt.Fprintf(&b, "Params: %s\n", params)
	b.WriteString("Plain prose, no headings, end with a full stop.")
	return b.String(), nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func textValues(inputs map[string]any) []string {
	var out []string
	for _, k := range sortedKeys(inputs) {
		if s, ok := inputs[k].(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// #endregion template
