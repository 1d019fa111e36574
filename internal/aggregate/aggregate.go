// Package aggregate merges extracted requirement items into the bucketed
// views of the final document.
package aggregate

import (
	"strings"

	"github.com/IBM/fp-go/v2/array"

	"github.com/Qubut/IP-Claim/packages/requirements_collector/internal/models"
)

// Bucket predicates match substrings of an item's category. They are not a
// partition: an item may land in none or several views.
var (
	isCertification = categoryContains("certification", "compliance")
	isDocument      = categoryContains("document", "labeling")
	isNotice        = categoryContains("notice", "enforcement")
)

func categoryContains(needles ...string) func(models.RequirementItem) bool {
	return func(item models.RequirementItem) bool {
		for _, n := range needles {
			if strings.Contains(item.Category, n) {
				return true
			}
		}
		return false
	}
}

func nonNil(items []models.RequirementItem) []models.RequirementItem {
	if items == nil {
		return []models.RequirementItem{}
	}
	return items
}

// Aggregate keeps items in insertion order and passes citations through
// untouched.
func Aggregate(items []models.RequirementItem, citations []models.Citation) models.Requirements {
	all := nonNil(items)
	stats := make(map[string]int)
	for _, item := range all {
		stats[item.Category]++
	}
	if citations == nil {
		citations = []models.Citation{}
	}
	return models.Requirements{
		TotalCount:     len(all),
		Certifications: nonNil(array.Filter(isCertification)(all)),
		Documents:      nonNil(array.Filter(isDocument)(all)),
		Notices:        nonNil(array.Filter(isNotice)(all)),
		AllItems:       all,
		CategoryStats:  stats,
		Citations:      citations,
	}
}
