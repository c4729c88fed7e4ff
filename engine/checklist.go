package engine

const (
	minScore = 0
	maxScore = 100
)

// FeatureExtractor computes one bounded category score
type FeatureExtractor interface {
	Category() Category
	Extract(doc *Document, meta Metadata) int
}

// Check is a single scoring rule. Award returns the points earned, which
// must lie between zero and MaxPoints.
type Check struct {
	Name      string
	MaxPoints int
	Award     func(doc *Document, meta Metadata) int
}

// CheckResult reports the outcome of one check
type CheckResult struct {
	Name      string `json:"name"`
	Points    int    `json:"points"`
	MaxPoints int    `json:"maxPoints"`
}

// Checklist is an ordered list of checks whose points are summed and capped
type Checklist struct {
	category Category
	checks   []Check
}

// NewChecklist creates a checklist for a category
func NewChecklist(category Category, checks ...Check) *Checklist {
	return &Checklist{category: category, checks: checks}
}

// Category implements FeatureExtractor
func (c *Checklist) Category() Category {
	return c.category
}

// Extract implements FeatureExtractor
func (c *Checklist) Extract(doc *Document, meta Metadata) int {
	total := 0
	for _, check := range c.checks {
		total += award(check, doc, meta)
	}
	return clamp(total)
}

// Explain evaluates every check and reports the points each one awarded
func (c *Checklist) Explain(doc *Document, meta Metadata) []CheckResult {
	results := make([]CheckResult, 0, len(c.checks))
	for _, check := range c.checks {
		results = append(results, CheckResult{
			Name:      check.Name,
			Points:    award(check, doc, meta),
			MaxPoints: check.MaxPoints,
		})
	}
	return results
}

func award(check Check, doc *Document, meta Metadata) int {
	points := check.Award(doc, meta)
	if points < 0 {
		return 0
	}
	if points > check.MaxPoints {
		return check.MaxPoints
	}
	return points
}

func clamp(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// when builds a check awarding fixed points if the predicate holds
func when(name string, points int, pred func(doc *Document, meta Metadata) bool) Check {
	return Check{
		Name:      name,
		MaxPoints: points,
		Award: func(doc *Document, meta Metadata) int {
			if pred(doc, meta) {
				return points
			}
			return 0
		},
	}
}

// perItem builds a check awarding points per counted item, up to a cap
func perItem(name string, each, limit int, count func(doc *Document) int) Check {
	return Check{
		Name:      name,
		MaxPoints: limit,
		Award: func(doc *Document, _ Metadata) int {
			return count(doc) * each
		},
	}
}

// tiered builds a check awarding the points of the first tier whose
// threshold the measured value exceeds. Tiers must be ordered from the
// highest threshold down.
func tiered(name string, measure func(doc *Document) int, tiers ...tier) Check {
	best := 0
	for _, t := range tiers {
		if t.points > best {
			best = t.points
		}
	}
	return Check{
		Name:      name,
		MaxPoints: best,
		Award: func(doc *Document, _ Metadata) int {
			v := measure(doc)
			for _, t := range tiers {
				if v > t.above {
					return t.points
				}
			}
			return 0
		},
	}
}

type tier struct {
	above  int
	points int
}
