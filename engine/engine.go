// Package engine implements the Citation Guarantee Score (CGS): a
// deterministic classifier estimating how likely a content document is to
// be cited by an external summarization system.
//
// Scoring is pure. Four feature extractors read a parsed document and its
// metadata, their scores are combined with fixed weights, the composite is
// classified into a risk band, and a recommendation is produced for every
// weak category.
package engine

import "sync"

// Engine orchestrates the extractors, aggregator, classifier and synthesizer.
// An Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	extractors []FeatureExtractor
	parallel   bool
}

// Option configures an Engine
type Option func(*Engine)

// WithParallel evaluates extractors concurrently. Results are identical to
// sequential evaluation.
func WithParallel() Option {
	return func(e *Engine) {
		e.parallel = true
	}
}

// New creates an Engine using the built-in extractors
func New(opts ...Option) *Engine {
	e := &Engine{extractors: DefaultExtractors()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// Score scores content with the default engine
func Score(content string, meta Metadata) ScoreResult {
	return defaultEngine.Score(content, meta)
}

// Score parses content and scores it
func (e *Engine) Score(content string, meta Metadata) ScoreResult {
	return e.ScoreDocument(Parse(content), meta)
}

// ScoreDocument scores an already parsed document
func (e *Engine) ScoreDocument(doc *Document, meta Metadata) ScoreResult {
	breakdown := e.extract(doc, meta)
	composite := Aggregate(breakdown)

	return ScoreResult{
		CompositeScore:  composite,
		Breakdown:       breakdown,
		RiskBand:        Classify(composite),
		Recommendations: Synthesize(breakdown),
	}
}

func (e *Engine) extract(doc *Document, meta Metadata) Breakdown {
	scores := make([]int, len(e.extractors))

	if e.parallel {
		var wg sync.WaitGroup
		for i, ex := range e.extractors {
			wg.Add(1)
			go func(i int, ex FeatureExtractor) {
				defer wg.Done()
				scores[i] = clamp(ex.Extract(doc, meta))
			}(i, ex)
		}
		wg.Wait()
	} else {
		for i, ex := range e.extractors {
			scores[i] = clamp(ex.Extract(doc, meta))
		}
	}

	var b Breakdown
	for i, ex := range e.extractors {
		b.set(ex.Category(), scores[i])
	}
	return b
}

// CategoryExplanation details how one category score was reached
type CategoryExplanation struct {
	Category Category      `json:"category"`
	Label    string        `json:"label"`
	Weight   float64       `json:"weight"`
	Score    int           `json:"score"`
	Checks   []CheckResult `json:"checks"`
}

type explainer interface {
	Explain(doc *Document, meta Metadata) []CheckResult
}

// Explain reports the per-check points behind every category score.
// Extractors that are not checklists are reported without checks.
func (e *Engine) Explain(content string, meta Metadata) []CategoryExplanation {
	doc := Parse(content)
	out := make([]CategoryExplanation, 0, len(e.extractors))
	for _, ex := range e.extractors {
		exp := CategoryExplanation{
			Category: ex.Category(),
			Label:    ex.Category().Label(),
			Weight:   Weight(ex.Category()),
			Score:    clamp(ex.Extract(doc, meta)),
		}
		if x, ok := ex.(explainer); ok {
			exp.Checks = x.Explain(doc, meta)
		}
		out = append(out, exp)
	}
	return out
}
