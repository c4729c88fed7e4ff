package engine

// Category weights as integer percentages of the composite score
const (
	WeightTrust      = 40
	WeightStructural = 30
	WeightTechnical  = 20
	WeightSemantic   = 10

	weightTotal = WeightTrust + WeightStructural + WeightTechnical + WeightSemantic
)

// Both conversions overflow at compile time unless the weights sum to 100.
const (
	_ = uint(weightTotal - 100)
	_ = uint(100 - weightTotal)
)

// recommendationThreshold is the category score below which an action is suggested
const recommendationThreshold = 70

// Weight returns the fractional weight of a category
func Weight(c Category) float64 {
	return float64(weightPercent(c)) / 100
}

func weightPercent(c Category) int {
	switch c {
	case CategoryTrust:
		return WeightTrust
	case CategoryStructural:
		return WeightStructural
	case CategoryTechnical:
		return WeightTechnical
	case CategorySemantic:
		return WeightSemantic
	}
	return 0
}

// Aggregate combines the category scores into the composite score.
// The weighted sum is computed in hundredths so half-up rounding is exact.
func Aggregate(b Breakdown) int {
	sum := 0
	for _, c := range Categories {
		sum += weightPercent(c) * clamp(b.Get(c))
	}
	return clamp((sum + 50) / 100)
}

// Risk bands ordered from the highest threshold down
var (
	BandExcellent = RiskBand{Level: "excellent", Label: "Citation Ready", Color: "#10b981", Threshold: 90}
	BandGood      = RiskBand{Level: "good", Label: "High Probability", Color: "#3b82f6", Threshold: 75}
	BandModerate  = RiskBand{Level: "moderate", Label: "Needs Optimization", Color: "#f59e0b", Threshold: 60}
	BandPoor      = RiskBand{Level: "poor", Label: "High Risk", Color: "#ef4444", Threshold: 0}
)

// Bands returns the risk bands in classification order
func Bands() []RiskBand {
	return []RiskBand{BandExcellent, BandGood, BandModerate, BandPoor}
}

// Classify maps a composite score to its risk band. Lower bounds are inclusive.
func Classify(score int) RiskBand {
	for _, band := range Bands() {
		if score >= band.Threshold {
			return band
		}
	}
	return BandPoor
}

// BandByLevel looks up a band by its level name
func BandByLevel(level string) (RiskBand, bool) {
	for _, band := range Bands() {
		if band.Level == level {
			return band, true
		}
	}
	return RiskBand{}, false
}

var recommendations = map[Category]Recommendation{
	CategoryTrust: {
		Priority:       PriorityHigh,
		Category:       CategoryTrust,
		Label:          "Trust & Authority",
		Action:         "Add citations from high-authority sources (DA > 85)",
		ImpactEstimate: "+15 CGS points",
	},
	CategoryStructural: {
		Priority:       PriorityHigh,
		Category:       CategoryStructural,
		Label:          "Structure",
		Action:         `Add an Answer-First "Key Takeaway" box at the top`,
		ImpactEstimate: "+20 CGS points",
	},
	CategoryTechnical: {
		Priority:       PriorityMedium,
		Category:       CategoryTechnical,
		Label:          "Technical",
		Action:         "Add JSON-LD schema markup for FAQPage",
		ImpactEstimate: "+15 CGS points",
	},
	CategorySemantic: {
		Priority:       PriorityMedium,
		Category:       CategorySemantic,
		Label:          "Semantic",
		Action:         "Increase entity bolding and keyword density",
		ImpactEstimate: "+10 CGS points",
	},
}

// Synthesize returns one recommendation for every category scoring below
// the action threshold, in category order. The result is never nil.
func Synthesize(b Breakdown) []Recommendation {
	out := make([]Recommendation, 0, len(Categories))
	for _, c := range Categories {
		if b.Get(c) < recommendationThreshold {
			out = append(out, recommendations[c])
		}
	}
	return out
}
