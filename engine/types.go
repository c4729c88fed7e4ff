package engine

// Category identifies one of the four scoring dimensions
type Category string

const (
	CategoryTrust      Category = "trust"
	CategoryStructural Category = "structural"
	CategoryTechnical  Category = "technical"
	CategorySemantic   Category = "semantic"
)

// Categories lists every category in evaluation order
var Categories = []Category{
	CategoryTrust,
	CategoryStructural,
	CategoryTechnical,
	CategorySemantic,
}

// Label returns the display name used in reports
func (c Category) Label() string {
	switch c {
	case CategoryTrust:
		return "Trust & Authority"
	case CategoryStructural:
		return "Structural Compliance"
	case CategoryTechnical:
		return "Technical Readiness"
	case CategorySemantic:
		return "Semantic Depth"
	}
	return string(c)
}

// Metadata carries caller-supplied facts about a document.
// Empty strings and a nil DomainAuthority mean the fact is absent.
type Metadata struct {
	TargetKeyword   string `json:"targetKeyword,omitempty"`
	DomainAuthority *int   `json:"domainAuthority,omitempty"`
	MetaDescription string `json:"metaDescription,omitempty"`
}

// Breakdown holds the four category scores, each in [0,100]
type Breakdown struct {
	TrustAuthority       int `json:"trustAuthority"`
	StructuralCompliance int `json:"structuralCompliance"`
	TechnicalReadiness   int `json:"technicalReadiness"`
	SemanticDepth        int `json:"semanticDepth"`
}

// Get returns the score recorded for a category
func (b Breakdown) Get(c Category) int {
	switch c {
	case CategoryTrust:
		return b.TrustAuthority
	case CategoryStructural:
		return b.StructuralCompliance
	case CategoryTechnical:
		return b.TechnicalReadiness
	case CategorySemantic:
		return b.SemanticDepth
	}
	return 0
}

func (b *Breakdown) set(c Category, score int) {
	switch c {
	case CategoryTrust:
		b.TrustAuthority = score
	case CategoryStructural:
		b.StructuralCompliance = score
	case CategoryTechnical:
		b.TechnicalReadiness = score
	case CategorySemantic:
		b.SemanticDepth = score
	}
}

// RiskBand is the classification of a composite score
type RiskBand struct {
	Level     string `json:"level"`
	Label     string `json:"label"`
	Color     string `json:"color"`
	Threshold int    `json:"threshold"`
}

// Priority of a recommendation
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Recommendation is a suggested action for raising one category's score
type Recommendation struct {
	Priority       Priority `json:"priority"`
	Category       Category `json:"category"`
	Label          string   `json:"label"`
	Action         string   `json:"action"`
	ImpactEstimate string   `json:"impactEstimate"`
}

// ScoreResult is the complete output of one scoring call
type ScoreResult struct {
	CompositeScore  int              `json:"compositeScore"`
	Breakdown       Breakdown        `json:"breakdown"`
	RiskBand        RiskBand         `json:"riskBand"`
	Recommendations []Recommendation `json:"recommendations"`
}
