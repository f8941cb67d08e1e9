package classify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/parapipe/core"
)

// Default LLM settings.
const (
	defaultLLMURL         = "http://localhost:11434"
	defaultLLMModel       = "gemma3:27b-it-qat"
	defaultLLMTemperature = 0.1
	defaultLLMTimeout     = 20 * time.Second
	defaultLLMMaxRetries  = 3
	defaultLLMRetryWait   = time.Second
	defaultLLMRate        = 2.0 // requests per second
	defaultLLMBurst       = 1

	classifyTextLimit = 800
	filterTextLimit   = 500
)

// LLMConfig configures the LLM strategy.
type LLMConfig struct {
	URL         string        `koanf:"url" yaml:"url"`
	Model       string        `koanf:"model" yaml:"model"`
	Temperature float64       `koanf:"temperature" yaml:"temperature"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`
	MaxRetries  int           `koanf:"max_retries" yaml:"max_retries"`

	// RetryInterval is the first backoff wait; it doubles per retry.
	RetryInterval time.Duration `koanf:"retry_interval" yaml:"retry_interval"`
	// RateLimit is requests per second; 0 uses the default.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`
	// Filter asks the model for an INCLUDE/FILTER decision before the
	// style prompt.
	Filter bool `koanf:"filter" yaml:"filter"`
}

// DefaultLLMConfig returns the configuration used for unset fields.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{}.withDefaults()
}

func (c LLMConfig) withDefaults() LLMConfig {
	if c.URL == "" {
		c.URL = defaultLLMURL
	}
	if c.Model == "" {
		c.Model = defaultLLMModel
	}
	if c.Temperature == 0 {
		c.Temperature = defaultLLMTemperature
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultLLMTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultLLMMaxRetries
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultLLMRetryWait
	}
	if c.RateLimit <= 0 {
		c.RateLimit = defaultLLMRate
	}
	return c
}

// Completer sends one prompt to a language model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OllamaCompleter is a Completer backed by a local Ollama server.
type OllamaCompleter struct {
	model       llms.Model
	temperature float64
}

// NewOllama connects a Completer to the configured Ollama server.
func NewOllama(cfg LLMConfig) (*OllamaCompleter, error) {
	cfg = cfg.withDefaults()
	llm, err := ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	return &OllamaCompleter{model: llm, temperature: cfg.Temperature}, nil
}

// Complete generates a single completion.
func (o *OllamaCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, o.model, prompt, llms.WithTemperature(o.temperature))
}

const classifyPrompt = `You are a document formatting expert. Classify this paragraph into one of these exact styles:

STYLES:
- Heading 1: Major section headers (EMPLOYMENT POLICIES, SCHEDULING, etc.)
- Heading 2: Section headers with (RC-THPPH) codes, policy statements
- Heading 3: Subsection headers, requirements, procedures
- Heading 4: Details, questions, notes
- Heading 5: Options, system details, minor classifications
- Body Text: Explanatory content, descriptions, policy explanations
- List Paragraph: Instructions, requirements, action items, procedures
- Normal: Special formatting, quotes, references

PARAGRAPH TO CLASSIFY:
%q

INSTRUCTIONS:
- Consider the content meaning and intent
- Look for imperative language (must, shall, should) = often List Paragraph
- Look for ALL CAPS = usually headings
- Look for explanatory content = usually Body Text
- Respond with ONLY the exact style name

STYLE:`

const filterPrompt = `You are a document content expert. Determine if this text should be INCLUDED or FILTERED from the final document.

FILTER OUT (remove):
- Headers and footers
- Page numbers
- "INTENTIONALLY LEFT BLANK" pages
- Table of contents entries
- Navigation elements
- Revision information
- Company headers
- Document titles in headers

KEEP (include):
- Policy content
- Procedures
- Requirements
- Explanations
- Lists and instructions
- Actual document content

TEXT TO EVALUATE:
%q

Respond with ONLY: INCLUDE or FILTER

DECISION:`

// responseLabels are checked in order against the upper-cased reply.
var responseLabels = []core.Label{
	core.LabelHeading1, core.LabelHeading2, core.LabelHeading3,
	core.LabelHeading4, core.LabelHeading5,
	core.LabelBodyText, core.LabelListParagraph, core.LabelNormal,
}

// LLM classifies paragraphs with a language model. Replies that name no
// known style yield no decision.
type LLM struct {
	completer Completer
	cfg       LLMConfig
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewLLM creates an LLM classifier around completer.
func NewLLM(completer Completer, cfg LLMConfig, logger *zap.Logger) *LLM {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{
		completer: completer,
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), defaultLLMBurst),
		logger:    logger,
	}
}

// Classify asks the model for a style, and first for a keep/drop decision
// when filtering is enabled.
func (l *LLM) Classify(ctx context.Context, p core.Paragraph) (core.Action, bool, error) {
	if l.cfg.Filter {
		reply, err := l.ask(ctx, fmt.Sprintf(filterPrompt, truncate(p.Text, filterTextLimit)))
		if err != nil {
			return "", false, err
		}
		if decision, ok := parseFilterReply(reply); ok && decision.IsFilter() {
			return core.ActionFilter, true, nil
		}
	}

	reply, err := l.ask(ctx, fmt.Sprintf(classifyPrompt, truncate(p.Text, classifyTextLimit)))
	if err != nil {
		return "", false, err
	}
	label, ok := parseStyleReply(reply)
	if !ok {
		l.logger.Debug("unparseable model reply",
			zap.String("paragraph", p.ID),
			zap.String("reply", truncate(reply, 120)),
		)
		return "", false, nil
	}
	return core.LabelAction(label), true, nil
}

// ask sends prompt with rate limiting, a per-call timeout and retries.
func (l *LLM) ask(ctx context.Context, prompt string) (string, error) {
	op := func() (string, error) {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		callCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
		reply, err := l.completer.Complete(callCtx, prompt)
		if err != nil && ctx.Err() != nil {
			return "", backoff.Permanent(err)
		}
		return reply, err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.cfg.RetryInterval
	b.Multiplier = 2
	reply, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(l.cfg.MaxRetries)),
	)
	if err != nil {
		return "", fmt.Errorf("calling model %s: %w", l.cfg.Model, err)
	}
	return reply, nil
}

// parseStyleReply finds the first known style named in a reply.
func parseStyleReply(reply string) (core.Label, bool) {
	upper := strings.ToUpper(reply)
	for _, l := range responseLabels {
		if strings.Contains(upper, strings.ToUpper(string(l))) {
			return l, true
		}
	}
	return "", false
}

// parseFilterReply reads an INCLUDE/FILTER reply.
func parseFilterReply(reply string) (core.Action, bool) {
	upper := strings.ToUpper(reply)
	switch {
	case strings.Contains(upper, "FILTER"):
		return core.ActionFilter, true
	case strings.Contains(upper, "INCLUDE"):
		return "", true
	default:
		return "", false
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
