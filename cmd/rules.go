// Package cmd — rules commands.
// Manage the rule set used by the "rules" strategy: list, validate, import,
// export, remove, dry-run against a document, and suggest new rules.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/parapipe/authoring"
	"github.com/gaurav-prasanna/parapipe/core"
	"github.com/gaurav-prasanna/parapipe/core/extract"
	"github.com/gaurav-prasanna/parapipe/core/filter"
	"github.com/gaurav-prasanna/parapipe/core/rules"
	"github.com/gaurav-prasanna/parapipe/store"
)

// Rules command flag variables.
var (
	flagRulesFile  string
	flagRulesStore string
	flagReplace    bool
	flagIntent     string
	flagSave       bool
	flagFormat     string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage classification rules",
	Long: `Rules are read from a JSON/YAML file (--rules) or a SQLite database
(--store). Either may also be set in the config file.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules in evaluation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		set, err := openRuleSet(cmd.Context())
		if err != nil {
			return err
		}
		printRules(os.Stdout, set.Rules())
		return nil
	},
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report rules whose conditions can never match",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		set, err := openRuleSet(cmd.Context())
		if err != nil {
			return err
		}
		return validateRules(os.Stdout, set.Rules())
	},
}

var rulesExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export rules to a file, or to stdout with --format",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := openRuleSet(cmd.Context())
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return rules.Export(os.Stdout, set.Rules(), rules.Format(flagFormat))
		}
		if err := rules.SaveFile(args[0], set.Rules()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Exported %d rules to %s\n", set.Len(), args[0])
		return nil
	},
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import rules from a file into the rule file or store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		imported, err := rules.LoadFile(args[0])
		if err != nil {
			return err
		}
		src, err := openRuleSource()
		if err != nil {
			return err
		}
		defer src.Close()

		ctx := cmd.Context()
		merged, err := mergeRules(ctx, src, imported, flagReplace)
		if err != nil {
			return err
		}
		if err := src.Save(ctx, merged); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Imported %d rules (%d total)\n", len(imported), len(merged))
		return nil
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a rule by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openRuleSource()
		if err != nil {
			return err
		}
		defer src.Close()

		removed, err := src.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("no rule with id %q", args[0])
		}
		fmt.Fprintf(os.Stdout, "✓ Removed %s\n", args[0])
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one rule as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openRuleSource()
		if err != nil {
			return err
		}
		defer src.Close()

		r, ok, err := src.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no rule with id %q", args[0])
		}
		if err := yaml.NewEncoder(os.Stdout).Encode(r); err != nil {
			return fmt.Errorf("printing rule: %w", err)
		}
		return nil
	},
}

var rulesTestCmd = &cobra.Command{
	Use:   "test <document>",
	Short: "Show which rule decides each paragraph of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		set, err := openRuleSet(ctx)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		paragraphs, err := extract.New(extract.WithLogger(logger)).Read(ctx, args[0], data)
		if err != nil {
			return err
		}
		f, err := filter.NewWithConfig(cfg.Filter)
		if err != nil {
			return err
		}
		explainRules(os.Stdout, set, f, paragraphs)
		return nil
	},
}

var rulesSuggestCmd = &cobra.Command{
	Use:   "suggest <paragraph text>",
	Short: "Propose a rule from an example paragraph and an intent",
	Long: `Suggest builds a candidate rule from a template chosen by the intent:
headings ("make this a level 2 heading"), lists, body text, or removal
("remove these page markers"). With --save the rule is added to the rule
file or store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := extract.Enrich(core.Paragraph{Text: args[0]})
		sug, err := authoring.New().Suggest(p, flagIntent)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s\n\n", sug.Message)
		if err := yaml.NewEncoder(os.Stdout).Encode(sug.Rule); err != nil {
			return fmt.Errorf("printing rule: %w", err)
		}
		if !flagSave {
			return nil
		}

		src, err := openRuleSource()
		if err != nil {
			return err
		}
		defer src.Close()
		if err := src.Put(cmd.Context(), sug.Rule); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Saved %s\n", sug.Rule.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.PersistentFlags().StringVar(&flagRulesFile, "rules", "", "Rule file (.json, .yaml)")
	rulesCmd.PersistentFlags().StringVar(&flagRulesStore, "store", "", "SQLite rule database (wins over --rules)")

	rulesExportCmd.Flags().StringVar(&flagFormat, "format", string(rules.FormatYAML), "Format for stdout export: json or yaml")
	rulesImportCmd.Flags().BoolVar(&flagReplace, "replace", false, "Replace existing rules instead of merging")
	rulesSuggestCmd.Flags().StringVar(&flagIntent, "intent", "", "What the paragraph should become")
	rulesSuggestCmd.Flags().BoolVar(&flagSave, "save", false, "Add the suggested rule to the rule file or store")
	_ = rulesSuggestCmd.MarkFlagRequired("intent")

	rulesCmd.AddCommand(rulesListCmd, rulesValidateCmd, rulesExportCmd,
		rulesImportCmd, rulesRemoveCmd, rulesShowCmd, rulesTestCmd, rulesSuggestCmd)
}

// ruleSource is where rules are persisted. Put and Delete change a single
// rule; Save replaces them all.
type ruleSource interface {
	Load(ctx context.Context) ([]rules.Rule, error)
	Save(ctx context.Context, rs []rules.Rule) error
	Get(ctx context.Context, id string) (rules.Rule, bool, error)
	Put(ctx context.Context, r rules.Rule) error
	Delete(ctx context.Context, id string) (bool, error)
	Close() error
}

// fileSource keeps rules in a JSON or YAML file. A missing file holds no
// rules.
type fileSource struct {
	path string
}

func (f fileSource) Load(context.Context) ([]rules.Rule, error) {
	rs, err := rules.LoadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return rs, err
}

func (f fileSource) Save(_ context.Context, rs []rules.Rule) error {
	return rules.SaveFile(f.path, rs)
}

func (f fileSource) Get(ctx context.Context, id string) (rules.Rule, bool, error) {
	rs, err := f.Load(ctx)
	if err != nil {
		return rules.Rule{}, false, err
	}
	for _, r := range rs {
		if r.ID == id {
			return r, true, nil
		}
	}
	return rules.Rule{}, false, nil
}

// Put rewrites the file with r added, or replacing the rule with its id.
func (f fileSource) Put(ctx context.Context, r rules.Rule) error {
	merged, err := mergeRules(ctx, f, []rules.Rule{r}, false)
	if err != nil {
		return err
	}
	return f.Save(ctx, merged)
}

// Delete rewrites the file without the rule id. The file is left untouched
// when no rule has that id.
func (f fileSource) Delete(ctx context.Context, id string) (bool, error) {
	current, err := f.Load(ctx)
	if err != nil {
		return false, err
	}
	kept := make([]rules.Rule, 0, len(current))
	for _, r := range current {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(current) {
		return false, nil
	}
	return true, f.Save(ctx, kept)
}

func (f fileSource) Close() error { return nil }

func openRuleSource() (ruleSource, error) {
	if path := pick(flagRulesStore, cfg.Store); path != "" {
		s, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	if path := pick(flagRulesFile, cfg.Rules); path != "" {
		if _, err := rules.FormatForPath(path); err != nil {
			return nil, err
		}
		return fileSource{path: path}, nil
	}
	return nil, errors.New("no rule source: pass --rules or --store, or set rules/store in the config")
}

func openRuleSet(ctx context.Context) (*rules.RuleSet, error) {
	return loadRuleSet(ctx, pick(flagRulesStore, cfg.Store), pick(flagRulesFile, cfg.Rules))
}

// loadRuleSet reads rules from the store when set, else from the rule
// file. With neither, the set is empty.
func loadRuleSet(ctx context.Context, storePath, rulesPath string) (*rules.RuleSet, error) {
	switch {
	case storePath != "":
		s, err := store.Open(storePath)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		set, err := s.LoadSet(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading rules from %s: %w", storePath, err)
		}
		return set, nil
	case rulesPath != "":
		rs, err := rules.LoadFile(rulesPath)
		if err != nil {
			return nil, err
		}
		return rules.NewRuleSet(rs...)
	default:
		return rules.NewRuleSet()
	}
}

// mergeRules adds incoming to the source's rules. An incoming rule
// replaces a stored rule with the same id in place; with replace, the
// stored rules are dropped first.
func mergeRules(ctx context.Context, src ruleSource, incoming []rules.Rule, replace bool) ([]rules.Rule, error) {
	var current []rules.Rule
	if !replace {
		var err error
		if current, err = src.Load(ctx); err != nil {
			return nil, err
		}
	}
	index := make(map[string]int, len(current))
	for i, r := range current {
		index[r.ID] = i
	}
	for _, r := range incoming {
		if i, ok := index[r.ID]; ok {
			current[i] = r
			continue
		}
		index[r.ID] = len(current)
		current = append(current, r)
	}
	if _, err := rules.NewRuleSet(current...); err != nil {
		return nil, err
	}
	return current, nil
}

func printRules(w io.Writer, rs []rules.Rule) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tID\tACTION\tCONDITIONS\tDESCRIPTION")
	for _, r := range rs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", r.Priority, r.ID, r.Action, len(r.Conditions), r.Description)
	}
	tw.Flush()
}

func validateRules(w io.Writer, rs []rules.Rule) error {
	var invalid int
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			invalid++
			fmt.Fprintf(w, "✗ %s: %s\n", r.ID, strings.ReplaceAll(err.Error(), "\n", "; "))
			continue
		}
		fmt.Fprintf(w, "✓ %s\n", r.ID)
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d rules can never match", invalid, len(rs))
	}
	return nil
}

// explainRules prints, per paragraph, the filter reason or the deciding
// rule.
func explainRules(w io.Writer, set *rules.RuleSet, f core.Filter, paragraphs []core.Paragraph) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDECISION\tRULE\tTEXT")
	for i, p := range paragraphs {
		decision, ruleID := "(unchanged)", "-"
		if reason, drop := f.Check(p); drop {
			decision, ruleID = "FILTER", "filter: "+reason
		} else if r, ok := set.Explain(p); ok {
			decision, ruleID = string(r.Action), r.ID
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, decision, ruleID, preview(p.Text, 60))
	}
	tw.Flush()
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
