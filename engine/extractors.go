package engine

import (
	"strings"
	"unicode/utf8"
)

const (
	maxParagraphLength   = 400
	minMetaDescription   = 100
	domainAuthorityFloor = 50
	entityEmphasisCount  = 5
	entityRelationCount  = 10
)

var (
	evidenceTerms = []string{"study", "research", "data"}
	intentCues    = []string{"what", "how", "why", "when", "where", "best", "guide", "tips"}
)

// TrustAuthority scores E-E-A-T signals: authorship, freshness, citations,
// domain authority and evidentiary language.
var TrustAuthority = NewChecklist(CategoryTrust,
	when("author attribution", 20, func(d *Document, _ Metadata) bool {
		return d.emphasis > 0 && d.containsAny("By", "Author")
	}),
	when("freshness marker", 15, func(d *Document, _ Metadata) bool {
		return d.containsAny("Updated", "Published")
	}),
	perItem("external citations", 5, 25, func(d *Document) int {
		return d.anchors
	}),
	when("domain authority", 20, func(_ *Document, m Metadata) bool {
		da := m.DomainAuthority
		return da != nil && *da > domainAuthorityFloor && *da <= maxScore
	}),
	when("evidentiary language", 20, func(d *Document, _ Metadata) bool {
		return d.containsFold(evidenceTerms...)
	}),
)

// StructuralCompliance scores how easily an answer can be lifted from the page.
var StructuralCompliance = NewChecklist(CategoryStructural,
	when("answer-first block", 30, func(d *Document, _ Metadata) bool {
		return d.containsAny("aeo-answer-box", "Key Takeaway")
	}),
	when("heading hierarchy", 25, func(d *Document, _ Metadata) bool {
		return d.h1Count == 1 && d.h2Count >= 3
	}),
	when("list usage", 20, func(d *Document, _ Metadata) bool {
		return d.hasList
	}),
	when("paragraph brevity", 15, func(d *Document, _ Metadata) bool {
		mean, ok := d.meanParagraphLength()
		return ok && mean < maxParagraphLength
	}),
	when("entity emphasis", 10, func(d *Document, _ Metadata) bool {
		return d.emphasis >= entityEmphasisCount
	}),
)

// TechnicalReadiness scores machine-indexing signals.
var TechnicalReadiness = NewChecklist(CategoryTechnical,
	when("structured data", 40, func(d *Document, _ Metadata) bool {
		return d.containsAny("schema-tag", "application/ld+json")
	}),
	when("semantic sectioning", 30, func(d *Document, _ Metadata) bool {
		return d.hasSemantic
	}),
	when("meta description", 15, func(_ *Document, m Metadata) bool {
		return utf8.RuneCountInString(m.MetaDescription) > minMetaDescription
	}),
	when("image accessibility", 15, func(d *Document, _ Metadata) bool {
		return d.images > 0 && d.imagesAlt == d.images
	}),
)

// SemanticDepth scores keyword targeting, intent alignment and depth.
var SemanticDepth = NewChecklist(CategorySemantic,
	when("keyword in top heading", 30, func(d *Document, m Metadata) bool {
		keyword := strings.TrimSpace(m.TargetKeyword)
		if keyword == "" || d.topHeading == "" {
			return false
		}
		return strings.Contains(strings.ToLower(d.topHeading), strings.ToLower(keyword))
	}),
	when("intent cue", 30, func(d *Document, _ Metadata) bool {
		return d.containsFold(intentCues...)
	}),
	tiered("content depth", func(d *Document) int { return d.words },
		tier{above: 1000, points: 20},
		tier{above: 500, points: 10},
	),
	when("entity relationships", 20, func(d *Document, _ Metadata) bool {
		return d.emphasis >= entityRelationCount
	}),
)

// DefaultExtractors returns the four built-in extractors in category order
func DefaultExtractors() []FeatureExtractor {
	return []FeatureExtractor{
		TrustAuthority,
		StructuralCompliance,
		TechnicalReadiness,
		SemanticDepth,
	}
}
