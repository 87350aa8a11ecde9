package recognition

import "strings"

// CategoryRule maps a category label to the keywords that select it.
// Rule order matters: ties in keyword weight keep the earlier rule.
type CategoryRule struct {
	Label    string
	Keywords []string
}

// FallbackCategory is assigned when no rule matches.
const FallbackCategory = "其他"

// InferCategory scores every rule by how many of its keywords occur in the
// recognized item name or the original filename and returns the best-scoring
// label. A pure function of its inputs; zero matches yield the fallback.
func InferCategory(itemName, filename string, rules []CategoryRule) string {
	source := strings.ToLower(itemName + "\n" + filename)
	best := FallbackCategory
	bestWeight := 0
	for _, rule := range rules {
		weight := 0
		for _, keyword := range rule.Keywords {
			token := strings.ToLower(strings.TrimSpace(keyword))
			if token != "" && strings.Contains(source, token) {
				weight++
			}
		}
		if weight > bestWeight {
			bestWeight = weight
			best = rule.Label
		}
	}
	return best
}
