// Package pipeline runs paragraphs through the filter and a classifier and
// produces the labeled stream renderers consume.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gaurav-prasanna/parapipe/core"
)

// Outcomes recorded on the paragraphs_total counter.
const (
	OutcomeKept         = "kept"
	OutcomeFiltered     = "filtered"
	OutcomeRuleFiltered = "rule_filtered"
)

// ReasonRuleFilter is the exclusion reason when a classifier returns FILTER.
const ReasonRuleFilter = "classifier: FILTER"

// Stats summarises one run.
type Stats struct {
	Input        int                `json:"input"`
	Kept         int                `json:"kept"`
	Filtered     int                `json:"filtered"`
	RuleFiltered int                `json:"rule_filtered"`
	Unchanged    int                `json:"unchanged"`
	Labels       map[core.Label]int `json:"labels"`
	Reasons      map[string]int     `json:"reasons"`
}

// Result is the labeled stream plus its stats.
type Result struct {
	Paragraphs []core.Labeled
	Stats      Stats
}

// Document wraps the result for a renderer.
func (r Result) Document(title, sourcePath string) core.Document {
	return core.Document{Title: title, SourcePath: sourcePath, Paragraphs: r.Paragraphs}
}

// Pipeline wires a Filter and a Classifier.
type Pipeline struct {
	filter     core.Filter
	classifier core.Classifier
	metrics    *Metrics
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records counters on m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline. A nil filter keeps every paragraph; a nil
// classifier leaves every paragraph in its original style.
func New(filter core.Filter, classifier core.Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{filter: filter, classifier: classifier, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run labels paragraphs in order. It stops at the first context error; a
// classifier error on one paragraph keeps that paragraph's original style.
func (p *Pipeline) Run(ctx context.Context, paragraphs []core.Paragraph) (Result, error) {
	start := time.Now()
	res := Result{
		Paragraphs: make([]core.Labeled, 0, len(paragraphs)),
		Stats: Stats{
			Input:   len(paragraphs),
			Labels:  map[core.Label]int{},
			Reasons: map[string]int{},
		},
	}

	for _, para := range paragraphs {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		labeled, err := p.label(ctx, para)
		if err != nil {
			return Result{}, err
		}
		p.record(&res.Stats, labeled)
		res.Paragraphs = append(res.Paragraphs, labeled)
	}

	if p.metrics != nil {
		p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}
	p.logger.Info("pipeline run complete",
		zap.Int("input", res.Stats.Input),
		zap.Int("kept", res.Stats.Kept),
		zap.Int("filtered", res.Stats.Filtered),
		zap.Int("rule_filtered", res.Stats.RuleFiltered),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (p *Pipeline) label(ctx context.Context, para core.Paragraph) (core.Labeled, error) {
	if p.filter != nil {
		if reason, drop := p.filter.Check(para); drop {
			p.logger.Debug("paragraph filtered", zap.String("id", para.ID), zap.String("reason", reason))
			return core.Labeled{Paragraph: para, Excluded: true, Reason: reason, Source: core.SourceFilter}, nil
		}
	}

	if p.classifier != nil {
		action, ok, err := p.classifier.Classify(ctx, para)
		switch {
		case err != nil && ctx.Err() != nil:
			return core.Labeled{}, ctx.Err()
		case err != nil:
			p.logger.Warn("classifier failed, keeping original style", zap.String("id", para.ID), zap.Error(err))
			if p.metrics != nil {
				p.metrics.ClassifyErrors.Inc()
			}
		case ok && action.IsFilter():
			return core.Labeled{Paragraph: para, Excluded: true, Reason: ReasonRuleFilter, Source: core.SourceClassifier}, nil
		case ok:
			return core.Labeled{Paragraph: para, Label: action.Label(), Source: core.SourceClassifier}, nil
		}
	}

	label := para.CurrentStyle
	if label == "" {
		label = core.LabelNormal
	}
	return core.Labeled{Paragraph: para, Label: label, Source: core.SourceOriginal}, nil
}

func (p *Pipeline) record(s *Stats, l core.Labeled) {
	outcome := OutcomeKept
	switch {
	case l.Excluded && l.Source == core.SourceFilter:
		outcome = OutcomeFiltered
		s.Filtered++
		s.Reasons[l.Reason]++
		if p.metrics != nil {
			p.metrics.FilterReasons.WithLabelValues(l.Reason).Inc()
		}
	case l.Excluded:
		outcome = OutcomeRuleFiltered
		s.RuleFiltered++
	default:
		s.Kept++
		s.Labels[l.Label]++
		if l.Source == core.SourceOriginal {
			s.Unchanged++
		}
		if p.metrics != nil {
			p.metrics.Labels.WithLabelValues(string(l.Label)).Inc()
		}
	}
	if p.metrics != nil {
		p.metrics.Paragraphs.WithLabelValues(outcome).Inc()
	}
}
