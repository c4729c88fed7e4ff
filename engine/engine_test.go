package engine

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

// words returns n space-separated filler words with no cue or evidence terms
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("lorem ", n))
}

func fullCreditDocument() string {
	var sb strings.Builder
	sb.WriteString(`<script type="application/ld+json">{"@context":"https://schema.org","@type":"FAQPage"}</script>`)
	sb.WriteString(`<article>`)
	sb.WriteString(`<h1>Solar Panels: A Complete Guide</h1>`)
	sb.WriteString(`<div class="aeo-answer-box"><strong>Key Takeaway</strong> panels pay back quickly.</div>`)
	sb.WriteString(`<p>By <strong>Jane Doe</strong>. Updated 2024-05-01.</p>`)
	sb.WriteString(`<h2>Costs</h2><h2>Savings</h2><h2>Installation</h2>`)
	sb.WriteString(`<ul><li>one</li><li>two</li></ul>`)
	sb.WriteString(`<p>Recent research shows how output varies.</p>`)
	for i := 0; i < 5; i++ {
		sb.WriteString(fmt.Sprintf(`<a href="https://source%d.example.org">source</a>`, i))
	}
	for i := 0; i < 10; i++ {
		sb.WriteString(fmt.Sprintf(`<p><strong>Entity%d</strong> %s</p>`, i, words(40)))
	}
	for i := 0; i < 20; i++ {
		sb.WriteString(fmt.Sprintf(`<p>%s</p>`, words(40)))
	}
	sb.WriteString(`<img src="a.png" alt="diagram"><img src="b.png" alt="chart">`)
	sb.WriteString(`</article>`)
	return sb.String()
}

func fullCreditMetadata() Metadata {
	return Metadata{
		TargetKeyword:   "solar panels",
		DomainAuthority: intPtr(80),
		MetaDescription: strings.Repeat("m", 150),
	}
}

func TestEmptyInput(t *testing.T) {
	result := Score("", Metadata{})

	if result.Breakdown != (Breakdown{}) {
		t.Errorf("Expected all-zero breakdown, got %+v", result.Breakdown)
	}
	if result.CompositeScore != 0 {
		t.Errorf("Expected composite 0, got %d", result.CompositeScore)
	}
	if result.RiskBand.Level != "poor" {
		t.Errorf("Expected poor band, got %s", result.RiskBand.Level)
	}
	want := []Category{CategoryTrust, CategoryStructural, CategoryTechnical, CategorySemantic}
	if len(result.Recommendations) != len(want) {
		t.Fatalf("Expected %d recommendations, got %d", len(want), len(result.Recommendations))
	}
	for i, c := range want {
		if result.Recommendations[i].Category != c {
			t.Errorf("Recommendation %d: expected %s, got %s", i, c, result.Recommendations[i].Category)
		}
	}
}

func TestFullCredit(t *testing.T) {
	result := Score(fullCreditDocument(), fullCreditMetadata())

	want := Breakdown{100, 100, 100, 100}
	if result.Breakdown != want {
		for _, exp := range New().Explain(fullCreditDocument(), fullCreditMetadata()) {
			t.Logf("%s: %+v", exp.Category, exp.Checks)
		}
		t.Fatalf("Expected breakdown %+v, got %+v", want, result.Breakdown)
	}
	if result.CompositeScore != 100 {
		t.Errorf("Expected composite 100, got %d", result.CompositeScore)
	}
	if result.RiskBand != BandExcellent {
		t.Errorf("Expected excellent band, got %+v", result.RiskBand)
	}
	if result.Recommendations == nil || len(result.Recommendations) != 0 {
		t.Errorf("Expected empty non-nil recommendations, got %#v", result.Recommendations)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		score int
		level string
	}{
		{100, "excellent"},
		{90, "excellent"},
		{89, "good"},
		{75, "good"},
		{74, "moderate"},
		{60, "moderate"},
		{59, "poor"},
		{0, "poor"},
	}

	for _, tt := range tests {
		if got := Classify(tt.score).Level; got != tt.level {
			t.Errorf("Classify(%d) = %s, want %s", tt.score, got, tt.level)
		}
	}
}

func TestClassifyLabels(t *testing.T) {
	labels := map[string]string{
		"excellent": "Citation Ready",
		"good":      "High Probability",
		"moderate":  "Needs Optimization",
		"poor":      "High Risk",
	}
	for level, label := range labels {
		band, ok := BandByLevel(level)
		if !ok {
			t.Fatalf("Band %s not found", level)
		}
		if band.Label != label {
			t.Errorf("Band %s label = %q, want %q", level, band.Label, label)
		}
	}
	if _, ok := BandByLevel("unknown"); ok {
		t.Error("Unknown band level should not resolve")
	}
}

func TestRecommendationOrdering(t *testing.T) {
	recs := Synthesize(Breakdown{
		TrustAuthority:       85,
		StructuralCompliance: 50,
		TechnicalReadiness:   50,
		SemanticDepth:        70,
	})

	if len(recs) != 2 {
		t.Fatalf("Expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].Category != CategoryStructural || recs[0].Priority != PriorityHigh {
		t.Errorf("First recommendation = %+v, want structural/high", recs[0])
	}
	if recs[1].Category != CategoryTechnical || recs[1].Priority != PriorityMedium {
		t.Errorf("Second recommendation = %+v, want technical/medium", recs[1])
	}
}

func TestRecommendationPriorities(t *testing.T) {
	recs := Synthesize(Breakdown{})
	want := map[Category]Priority{
		CategoryTrust:      PriorityHigh,
		CategoryStructural: PriorityHigh,
		CategoryTechnical:  PriorityMedium,
		CategorySemantic:   PriorityMedium,
	}
	for _, r := range recs {
		if r.Priority != want[r.Category] {
			t.Errorf("%s priority = %s, want %s", r.Category, r.Priority, want[r.Category])
		}
		if r.Action == "" || r.ImpactEstimate == "" {
			t.Errorf("%s recommendation is missing text: %+v", r.Category, r)
		}
	}
}

func TestCitationCap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString(fmt.Sprintf(`<a href="https://example.com/%d">link</a> `, i))
	}

	result := Score(sb.String(), Metadata{})
	if result.Breakdown.TrustAuthority != 25 {
		t.Errorf("Expected trust 25, got %d", result.Breakdown.TrustAuthority)
	}
}

func TestWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, c := range Categories {
		sum += Weight(c)
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("Weights sum to %f, want 1.0", sum)
	}
}

func TestAggregateMatchesWeightedSum(t *testing.T) {
	for trust := 0; trust <= 100; trust += 5 {
		for structural := 0; structural <= 100; structural += 15 {
			for technical := 0; technical <= 100; technical += 15 {
				for semantic := 0; semantic <= 100; semantic += 5 {
					b := Breakdown{trust, structural, technical, semantic}
					exact := 0.40*float64(trust) + 0.30*float64(structural) +
						0.20*float64(technical) + 0.10*float64(semantic)
					want := int(math.Floor(exact + 0.5 + 1e-9))
					if got := Aggregate(b); got != want {
						t.Fatalf("Aggregate(%+v) = %d, want %d", b, got, want)
					}
				}
			}
		}
	}
}

func TestAggregateRoundsHalfUp(t *testing.T) {
	// 0.1 * 5 = 0.5
	if got := Aggregate(Breakdown{SemanticDepth: 5}); got != 1 {
		t.Errorf("Expected 0.5 to round up to 1, got %d", got)
	}
	// 0.3 * 15 = 4.5
	if got := Aggregate(Breakdown{StructuralCompliance: 15}); got != 5 {
		t.Errorf("Expected 4.5 to round up to 5, got %d", got)
	}
}

func TestRangeInvariant(t *testing.T) {
	inputs := []string{
		"",
		"plain text without markup",
		"<<<div><p>unterminated <strong>bold",
		strings.Repeat(`<strong>By</strong><a href="x">a</a>`, 200),
		fullCreditDocument(),
	}
	metas := []Metadata{
		{},
		{DomainAuthority: intPtr(-20)},
		{DomainAuthority: intPtr(1000), MetaDescription: strings.Repeat("x", 5000)},
		fullCreditMetadata(),
	}

	for _, in := range inputs {
		for _, m := range metas {
			r := Score(in, m)
			for _, c := range Categories {
				if s := r.Breakdown.Get(c); s < 0 || s > 100 {
					t.Errorf("%s score %d out of range", c, s)
				}
			}
			if r.CompositeScore < 0 || r.CompositeScore > 100 {
				t.Errorf("Composite %d out of range", r.CompositeScore)
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	doc := fullCreditDocument()
	meta := fullCreditMetadata()
	first := Score(doc, meta)
	for i := 0; i < 5; i++ {
		if got := Score(doc, meta); !reflect.DeepEqual(first, got) {
			t.Fatalf("Run %d differs: %+v vs %+v", i, first, got)
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	sequential := New()
	parallel := New(WithParallel())

	docs := []string{"", "<h1>How to</h1><p>data</p>", fullCreditDocument()}
	for _, d := range docs {
		a := sequential.Score(d, fullCreditMetadata())
		b := parallel.Score(d, fullCreditMetadata())
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Parallel result %+v differs from sequential %+v", b, a)
		}
	}
}

func TestMonotonicity(t *testing.T) {
	base := `<h1>Heading</h1><p>Short paragraph.</p>`
	additions := []string{
		`<p>Updated today</p>`,
		`<div>Key Takeaway</div>`,
		`<ul><li>item</li></ul>`,
		`<section>content</section>`,
		`<script type="application/ld+json">{}</script>`,
		`<p>why it matters</p>`,
		`<a href="https://example.org">ref</a>`,
		`<img src="a.png" alt="a">`,
	}

	before := Score(base, Metadata{})
	for _, add := range additions {
		after := Score(base+add, Metadata{})
		for _, c := range Categories {
			if after.Breakdown.Get(c) < before.Breakdown.Get(c) {
				t.Errorf("Adding %q decreased %s: %d -> %d", add, c, before.Breakdown.Get(c), after.Breakdown.Get(c))
			}
		}
		if after.CompositeScore < before.CompositeScore {
			t.Errorf("Adding %q decreased composite: %d -> %d", add, before.CompositeScore, after.CompositeScore)
		}
	}
}

func TestExplainSumsToScore(t *testing.T) {
	e := New()
	doc := `<h1>Guide</h1><p>By <strong>Ann</strong></p><a href="a">1</a><a href="b">2</a>`
	for _, exp := range e.Explain(doc, Metadata{TargetKeyword: "guide"}) {
		sum := 0
		for _, c := range exp.Checks {
			sum += c.Points
			if c.Points > c.MaxPoints {
				t.Errorf("%s/%s awarded %d over max %d", exp.Category, c.Name, c.Points, c.MaxPoints)
			}
		}
		if sum > 100 {
			sum = 100
		}
		if sum != exp.Score {
			t.Errorf("%s: checks sum to %d, score %d", exp.Category, sum, exp.Score)
		}
	}
}
