package providers

import (
	"strings"

	"github.com/dateai/dateai-server/internal/types"
)

// categoryRule is one keyword test in the shared classifier. Rules run in a
// fixed order and the first hit wins, so "comedy concert" classifies as
// live-music.
type categoryRule struct {
	category types.EventCategory
	name     []string
	meta     []string
	desc     []string
}

var categoryRules = []categoryRule{
	{types.CategoryLiveMusic, []string{"concert"}, []string{"music"}, []string{"concert"}},
	{types.CategoryComedy, []string{"comedy"}, []string{"comedy"}, []string{"comedy"}},
	{types.CategorySportsGames, []string{"sport"}, []string{"sport"}, []string{"sports"}},
	{types.CategoryPerformingArts, []string{"art"}, []string{"theatre"}, []string{"performance"}},
	{types.CategoryFoodDrink, []string{"food"}, []string{"dining"}, []string{"food"}},
	{types.CategoryCultural, []string{"culture"}, nil, []string{"cultural"}},
	{types.CategoryEducational, []string{"education"}, nil, []string{"workshop"}},
	{types.CategoryOutdoor, []string{"outdoor"}, nil, []string{"outdoor"}},
}

// ClassifyCategory maps free text from an upstream record onto a unified
// category. name is the event title, meta the upstream's own category label,
// desc the description. Unmatched input falls through to "special".
func ClassifyCategory(name, meta, desc string) types.EventCategory {
	name = strings.ToLower(name)
	meta = strings.ToLower(meta)
	desc = strings.ToLower(desc)

	for _, rule := range categoryRules {
		if containsAny(name, rule.name) || containsAny(meta, rule.meta) || containsAny(desc, rule.desc) {
			return rule.category
		}
	}
	return types.CategorySpecial
}

func containsAny(s string, subs []string) bool {
	if s == "" {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
