package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/quest-forensics/internal/content"
	"github.com/danielpatrickdp/quest-forensics/internal/geometry"
	"github.com/danielpatrickdp/quest-forensics/internal/rules"
)

var (
	hexagramID  string
	questSeed   string
	questInputs []string
	placeholder bool
)

var questCmd = &cobra.Command{
	Use:   "quest",
	Short: "Manage the quests the harness tests against",
}

var questAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Assign a geometry and store a quest",
	Long: `Assign a geometry for --hexagram (and optional --seed), validate the inputs
against the state's rule and store the quest as eligible.

Inputs are key=value pairs; numbers and booleans are parsed. With --placeholder
missing required inputs are filled from the rule's labels.`,
	RunE: runQuestAdd,
}

var questDisableCmd = &cobra.Command{
	Use:   "disable <quest-id>",
	Short: "Mark a quest ineligible for forensics runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := openStack()
		if err != nil {
			return err
		}
		defer stack.Close()
		return stack.Quests.SetEligible(cmd.Context(), args[0], false)
	},
}

func init() {
	f := questAddCmd.Flags()
	f.StringVar(&hexagramID, "hexagram", "", "hexagram id (required)")
	f.StringVar(&questSeed, "seed", "", "geometry seed (default: hexagram id)")
	f.StringArrayVar(&questInputs, "input", nil, "input key=value (repeatable)")
	f.BoolVar(&placeholder, "placeholder", false, "fill missing required inputs")
	_ = questAddCmd.MarkFlagRequired("hexagram")

	questCmd.AddCommand(questAddCmd, questDisableCmd)
}

func runQuestAdd(cmd *cobra.Command, _ []string) error {
	stack, err := openStack()
	if err != nil {
		return err
	}
	defer stack.Close()

	req := geometry.AssignRequest{ContentID: hexagramID}
	if questSeed != "" {
		req.Seed = questSeed
	}
	g := geometry.AssignWithProvider(stack.Bias, req)
	rule, err := rules.GetRule(g.State)
	if err != nil {
		return err
	}
	inputs, err := parseInputs(questInputs, rule)
	if err != nil {
		return err
	}

	if placeholder {
		for k, v := range rule.PlaceholderInputs() {
			if _, ok := inputs[k]; !ok {
				inputs[k] = v
			}
		}
	}

	q, err := stack.Quests.Create(cmd.Context(), content.NewQuest{HexagramID: hexagramID, Seed: questSeed, Inputs: inputs})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(q)
}

// parseInputs converts key=value pairs using the declared input types of
// rule. Keys the rule does not declare stay strings.
func parseInputs(pairs []string, rule rules.Rule) (map[string]any, error) {
	types := make(map[string]rules.InputType, len(rule.Inputs))
	for _, in := range rule.Inputs {
		types[in.Key] = in.Type
	}

	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("input %q: want key=value", p)
		}
		switch types[k] {
		case rules.InputNumber:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("input %s: want a number: %w", k, err)
			}
			out[k] = f
		case rules.InputBoolean:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("input %s: want a boolean: %w", k, err)
			}
			out[k] = b
		default:
			out[k] = v
		}
	}
	return out, nil
}
