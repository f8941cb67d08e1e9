// Package cmd — format command.
// This is the main command that orchestrates the pipeline:
// read → normalize → filter → classify → render → write.
//
// It handles flag validation, renderer selection, and single-input versus
// --all batch mode.
package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/parapipe/batch"
	"github.com/gaurav-prasanna/parapipe/config"
	"github.com/gaurav-prasanna/parapipe/core"
	"github.com/gaurav-prasanna/parapipe/core/classify"
	"github.com/gaurav-prasanna/parapipe/core/extract"
	"github.com/gaurav-prasanna/parapipe/core/fetch"
	"github.com/gaurav-prasanna/parapipe/core/filter"
	"github.com/gaurav-prasanna/parapipe/core/output"
	"github.com/gaurav-prasanna/parapipe/core/pipeline"
	"github.com/gaurav-prasanna/parapipe/core/render"
)

// Flag variables.
var (
	flagAll         bool
	flagDOCX        bool
	flagMarkdown    bool
	flagHTML        bool
	flagJSON        bool
	flagPDF         bool
	flagMethod      string
	flagRules       string
	flagStore       string
	flagOutputDir   string
	flagMetricsFile string
)

var formatCmd = &cobra.Command{
	Use:   "format <input>",
	Short: "Filter and restyle a document, a directory or a URL",
	Long: `Format reads a document (.docx, .html, .txt, .json) or fetches a URL, drops
noise paragraphs, classifies the rest into styles and writes the result in the
chosen output format.

Examples:
  parapipe format handbook.docx
  parapipe format handbook.docx --markdown --rules rules.yaml
  parapipe format ./manuals --all --html --output_dir ./out
  parapipe format https://example.com/manuals/ --all --json
  parapipe format handbook.docx --method llm,pattern --metrics_file run.prom`,
	Args: cobra.ExactArgs(1),
	RunE: runFormat,
}

func init() {
	rootCmd.AddCommand(formatCmd)

	formatCmd.Flags().BoolVar(&flagAll, "all", false, "Format every supported file under a directory, or every document linked from a URL")

	// Output format flags (mutually exclusive).
	formatCmd.Flags().BoolVar(&flagDOCX, "docx", false, "Output Word (default unless output.format says otherwise)")
	formatCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "Output Markdown")
	formatCmd.Flags().BoolVar(&flagHTML, "html", false, "Output HTML")
	formatCmd.Flags().BoolVar(&flagJSON, "json", false, "Output structured JSON")
	formatCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Output PDF")

	formatCmd.Flags().StringVar(&flagMethod, "method", "", "Classification strategy: rules, pattern, multi-stage, llm, or a comma-separated chain (default from config)")
	formatCmd.Flags().StringVar(&flagRules, "rules", "", "Rule file (.json, .yaml)")
	formatCmd.Flags().StringVar(&flagStore, "store", "", "SQLite rule database (wins over --rules)")
	formatCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: current directory)")
	formatCmd.Flags().StringVar(&flagMetricsFile, "metrics_file", "", "Write Prometheus metrics for the run to this file")
}

// formatter bundles what one run needs.
type formatter struct {
	reader   *extract.MultiReader
	fetcher  core.Fetcher
	pipeline *pipeline.Pipeline
	renderer core.Renderer
	writer   *output.Writer
}

// summary is the outcome of one input.
type summary struct {
	path  string
	stats pipeline.Stats
}

func runFormat(cmd *cobra.Command, args []string) error {
	input := args[0]

	if err := validateFlags(); err != nil {
		return err
	}
	renderer, err := selectRenderer(cfg.Output.Format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reg := prometheus.NewRegistry()
	p, err := buildPipeline(ctx, cfg, reg)
	if err != nil {
		return err
	}

	outDir := flagOutputDir
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	writer, err := output.New(outDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	logger.Debug("writing outputs", zap.String("dir", writer.Dir()))

	f := &formatter{
		reader:   extract.New(extract.WithLogger(logger)),
		fetcher:  fetch.New(),
		pipeline: p,
		renderer: renderer,
		writer:   writer,
	}

	if flagAll {
		err = f.runAll(ctx, input)
	} else {
		err = f.runOnly(ctx, input)
	}

	if flagMetricsFile != "" {
		if werr := prometheus.WriteToTextfile(flagMetricsFile, reg); werr != nil {
			return fmt.Errorf("writing metrics: %w", werr)
		}
		logger.Debug("metrics written", zap.String("path", flagMetricsFile))
	}
	return err
}

// buildPipeline wires filter, classifier and metrics from configuration
// and flags.
func buildPipeline(ctx context.Context, c *config.Config, reg prometheus.Registerer) (*pipeline.Pipeline, error) {
	f, err := filter.NewWithConfig(c.Filter)
	if err != nil {
		return nil, fmt.Errorf("building filter: %w", err)
	}

	method := c.Method
	if flagMethod != "" {
		method = flagMethod
	}

	var deps classify.Deps
	deps.Pattern = c.Pattern
	deps.LLM = c.LLM
	deps.Logger = logger
	if usesStrategy(method, classify.StrategyRules) {
		set, err := loadRuleSet(ctx, pick(flagStore, c.Store), pick(flagRules, c.Rules))
		if err != nil {
			return nil, err
		}
		deps.Rules = set
	}

	classifier, err := classify.New(method, deps)
	if err != nil {
		return nil, fmt.Errorf("building classifier: %w", err)
	}

	return pipeline.New(f, classifier,
		pipeline.WithMetrics(pipeline.NewMetrics(reg)),
		pipeline.WithLogger(logger),
	), nil
}

// runOnly formats a single file or URL.
func (f *formatter) runOnly(ctx context.Context, input string) error {
	data, stats, err := f.process(ctx, input)
	if err != nil {
		return err
	}

	path, err := f.writer.WriteOnly(input, data, f.renderer.Extension())
	if err != nil {
		return err
	}
	printWritten("", summary{path: path, stats: stats})
	return nil
}

// runAll formats every input discovered under a directory or linked from
// a URL. A failing input is reported and skipped.
func (f *formatter) runAll(ctx context.Context, input string) error {
	remote := isURL(input)
	fmt.Fprintf(os.Stdout, "Discovering documents in %s...\n", input)

	var (
		inputs []string
		err    error
	)
	if remote {
		inputs, err = batch.DiscoverLinks(ctx, input, f.fetcher, f.reader.Supports)
	} else {
		inputs, err = batch.Discover(input, f.reader.Supports)
	}
	if err != nil {
		return fmt.Errorf("discovering documents: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Found %d documents to process\n", len(inputs))

	var errCount int
	for i, doc := range inputs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprintf(os.Stdout, "[%d/%d] Processing %s\n", i+1, len(inputs), doc)

		data, stats, err := f.process(ctx, doc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Error: %v\n", err)
			errCount++
			continue
		}

		var path string
		if remote {
			path, err = f.writer.WriteOnly(doc, data, f.renderer.Extension())
		} else {
			path, err = f.writer.WriteAll(input, doc, data, f.renderer.Extension())
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ Write error: %v\n", err)
			errCount++
			continue
		}
		printWritten("  ", summary{path: path, stats: stats})
	}

	if errCount > 0 {
		fmt.Fprintf(os.Stderr, "\n%d/%d documents failed\n", errCount, len(inputs))
	}
	return nil
}

// process runs a single input through the full pipeline.
func (f *formatter) process(ctx context.Context, input string) ([]byte, pipeline.Stats, error) {
	// 1. Load
	name, data, err := f.load(ctx, input)
	if err != nil {
		return nil, pipeline.Stats{}, err
	}

	// 2. Read, normalize and derive properties
	paragraphs, err := f.reader.Read(ctx, name, data)
	if err != nil {
		return nil, pipeline.Stats{}, fmt.Errorf("read: %w", err)
	}

	// 3. Filter and classify
	result, err := f.pipeline.Run(ctx, paragraphs)
	if err != nil {
		return nil, pipeline.Stats{}, fmt.Errorf("classify: %w", err)
	}

	// 4. Render to output format
	out, err := f.renderer.Render(result.Document(title(name), input))
	if err != nil {
		return nil, pipeline.Stats{}, fmt.Errorf("render: %w", err)
	}
	return out, result.Stats, nil
}

// load returns the input's bytes and the file name used to pick a reader.
func (f *formatter) load(ctx context.Context, input string) (string, []byte, error) {
	if isURL(input) {
		res, err := f.fetcher.Fetch(ctx, input)
		if err != nil {
			return "", nil, fmt.Errorf("fetch: %w", err)
		}
		return fetch.NameFor(res), res.Body, nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", input, err)
	}
	return input, data, nil
}

func printWritten(indent string, s summary) {
	fmt.Fprintf(os.Stdout, "%s✓ Written: %s (kept %d of %d, filtered %d, rule-filtered %d)\n",
		indent, s.path, s.stats.Kept, s.stats.Input, s.stats.Filtered, s.stats.RuleFiltered)
}

// validateFlags checks that at most one output format is chosen.
func validateFlags() error {
	formatCount := 0
	for _, set := range []bool{flagDOCX, flagMarkdown, flagHTML, flagJSON, flagPDF} {
		if set {
			formatCount++
		}
	}
	if formatCount > 1 {
		return fmt.Errorf("only one output format allowed per run (got %d)", formatCount)
	}
	return nil
}

// selectRenderer creates the Renderer chosen by flags, falling back to
// the configured format.
func selectRenderer(configured string) (core.Renderer, error) {
	switch {
	case flagDOCX:
		configured = "docx"
	case flagMarkdown:
		configured = "markdown"
	case flagHTML:
		configured = "html"
	case flagJSON:
		configured = "json"
	case flagPDF:
		configured = "pdf"
	}
	switch configured {
	case "docx":
		return render.NewDOCXRenderer(), nil
	case "markdown":
		return render.NewMarkdownRenderer(), nil
	case "html":
		return render.NewHTMLRenderer(), nil
	case "json":
		return render.NewJSONRenderer(), nil
	case "pdf":
		return render.NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("no renderer for output format %q", configured)
	}
}

func isURL(s string) bool {
	parsed, err := url.Parse(s)
	return err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// title derives a document title from its file name.
func title(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func usesStrategy(method, strategy string) bool {
	for _, name := range strings.Split(method, ",") {
		if strings.TrimSpace(name) == strategy {
			return true
		}
	}
	return false
}

// pick returns the flag value when set, else the configured one.
func pick(flag, configured string) string {
	if flag != "" {
		return flag
	}
	return configured
}
