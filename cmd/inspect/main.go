// Command inspect prints the rule table, geometry assignments and the
// contents of a forensics database.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/quest-forensics/internal/app"
	"github.com/danielpatrickdp/quest-forensics/internal/config"
	"github.com/danielpatrickdp/quest-forensics/internal/geometry"
	"github.com/danielpatrickdp/quest-forensics/internal/logging"
	"github.com/danielpatrickdp/quest-forensics/internal/rules"
)

var (
	configPath string
	dbPath     string
	last       int
	jsonOut    bool
	seed       string
)

// #region commands
var rootCmd = &cobra.Command{
	Use:           "inspect",
	Short:         "Inspect rules, geometry and forensics state",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the state rule table",
	RunE:  runRules,
}

var geometryCmd = &cobra.Command{
	Use:   "geometry <content-id>",
	Short: "Assign a geometry for a content id",
	Args:  cobra.ExactArgs(1),
	RunE:  runGeometry,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "List recent generation cache entries",
	RunE:  runCache,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded forensics runs",
	RunE:  runRuns,
}

var questsCmd = &cobra.Command{
	Use:   "quests",
	Short: "List stored quests",
	RunE:  runQuests,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file")
	pf.StringVar(&dbPath, "db", "", "SQLite database (overrides config)")
	pf.IntVar(&last, "last", 20, "show N most recent rows")
	pf.BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	geometryCmd.Flags().StringVar(&seed, "seed", "", "seed (default: content id)")

	rootCmd.AddCommand(rulesCmd, geometryCmd, cacheCmd, runsCmd, questsCmd)
}

// #endregion commands

// #region main
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	// inspect never generates
	cfg.CodecAddr = ""
	return cfg, nil
}

func openStack() (*app.Stack, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, nil)
}

// #endregion main

// #region rules
func runRules(*cobra.Command, []string) error {
	reg := rules.Default()
	var out []rules.Rule
	for _, s := range reg.States() {
		r, err := reg.Get(s)
		if err != nil {
			return err
		}
		out = append(out, r)
	}
	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("%-22s  %3s  %-6s  %s\n", "State", "Ver", "Assist", "Required")
	fmt.Printf("%-22s+-%3s+-%-6s+-%s\n", strings.Repeat("-", 22), "---", "------", "--------------------")
	for _, r := range out {
		fmt.Printf("%-22s  %3d  %-6v  %s\n", r.State, r.Version, r.RequiresAssist, strings.Join(r.RequiredInputKeys, ","))
	}
	return nil
}

// #endregion rules

// #region geometry
type geometryOutput struct {
	ContentID string            `json:"contentId"`
	Seed      string            `json:"seed,omitempty"`
	Geometry  geometry.Geometry `json:"geometry"`
	Rule      rules.Rule        `json:"rule"`
}

func runGeometry(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var bias geometry.CubeBiasProvider = geometry.NoBias{}
	if cfg.BiasTable != "" {
		if bias, err = geometry.LoadBiasTable(cfg.BiasTable); err != nil {
			return err
		}
	}

	req := geometry.AssignRequest{ContentID: args[0]}
	if seed != "" {
		req.Seed = seed
	}
	g := geometry.AssignWithProvider(bias, req)
	rule, err := rules.GetRule(g.State)
	if err != nil {
		return err
	}
	out := geometryOutput{ContentID: args[0], Seed: seed, Geometry: g, Rule: rule}
	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Content:    %s\n", out.ContentID)
	fmt.Printf("State:      %s\n", g.State)
	fmt.Printf("Axes:       %s / %s / %s\n", g.Visibility, g.Revelation, g.Direction)
	fmt.Printf("Assist:     %v\n", rule.RequiresAssist)
	fmt.Printf("\nInputs:\n")
	for _, in := range rule.Inputs {
		req := " "
		if in.Required {
			req = "*"
		}
		fmt.Printf("  %s %-12s %-8s %s\n", req, in.Key, in.Type, in.Label)
	}
	return nil
}

// #endregion geometry

// #region tables
func runCache(cmd *cobra.Command, _ []string) error {
	stack, err := openStack()
	if err != nil {
		return err
	}
	defer stack.Close()

	entries, err := stack.Cache.List(cmd.Context(), last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no cache entries")
		return nil
	}
	fmt.Printf("%-12s  %-12s  %-12s  %-12s  %s\n", "Content", "Output FP", "Prompt FP", "Inputs FP", "Created")
	for _, e := range entries {
		fmt.Printf("%-12s  %-12s  %-12s  %-12s  %s\n",
			shortID(e.ContentID), shortID(e.OutputFingerprint), shortID(e.PromptFingerprint),
			shortID(e.Key[strings.LastIndex(e.Key, "=")+1:]), e.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

func runRuns(cmd *cobra.Command, _ []string) error {
	stack, err := openStack()
	if err != nil {
		return err
	}
	defer stack.Close()

	runs, err := logging.ListRuns(cmd.Context(), stack.Quests.DB(), last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs recorded")
		return nil
	}
	fmt.Printf("%-12s  %-4s  %5s  %-12s  %s\n", "Run", "Mode", "N", "Quest", "Created")
	for _, r := range runs {
		fmt.Printf("%-12s  %-4s  %5d  %-12s  %s\n",
			shortID(r.RunID), r.Mode, r.N, shortID(r.ContentID), r.CreatedAt.Format("2006-01-02T15:04:05Z"))
		var diagnosis []string
		if err := json.Unmarshal([]byte(r.DiagnosisJSON), &diagnosis); err == nil {
			for _, d := range diagnosis {
				fmt.Printf("    %s\n", d)
			}
		}
	}
	return nil
}

func runQuests(cmd *cobra.Command, _ []string) error {
	stack, err := openStack()
	if err != nil {
		return err
	}
	defer stack.Close()

	quests, err := stack.Quests.List(cmd.Context(), last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(quests)
	}
	fmt.Printf("%-12s  %-10s  %-22s  %-8s  %s\n", "Quest", "Hexagram", "State", "Eligible", "Created")
	for _, q := range quests {
		fmt.Printf("%-12s  %-10s  %-22s  %-8v  %s\n",
			shortID(q.ID), q.HexagramID, q.Geometry.State, q.Eligible, q.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion tables

// #region output
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
