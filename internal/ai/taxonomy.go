package ai

import "strings"

// categoryGroups maps alias families to canonical labels; the first alias
// in each group is the label returned by normalization. The slice is
// ordered so that matching stays deterministic when aliases from different
// families overlap.
var categoryGroups = [][]string{
	{"Food & Dining", "Groceries", "Restaurants", "Coffee", "Takeout"},
	{"Transportation", "Gas", "Public Transit", "Uber/Taxi", "Parking"},
	{"Shopping", "Clothing", "Electronics", "Home & Garden", "Personal Care"},
	{"Entertainment", "Movies", "Gaming", "Streaming", "Books"},
	{"Bills & Utilities", "Rent", "Internet", "Phone", "Insurance"},
	{"Healthcare", "Pharmacy", "Fitness", "Medical", "Dental"},
	{"Salary", "Bonus", "Freelance", "Investment", "Gift"},
	{"Other", "Miscellaneous", "Cash", "Transfer"},
}

// promptCategories is the taxonomy enumerated in the categorization prompt.
const promptCategories = "Food & Dining, Groceries, Transportation, Shopping, Entertainment, Bills & Utilities, Healthcare, Salary, Freelance, Investment, Other"

// Categories returns the canonical category labels in stable order.
func Categories() []string {
	out := make([]string, 0, len(categoryGroups))
	for _, group := range categoryGroups {
		out = append(out, group[0])
	}
	return out
}

// matchCategory normalizes a free-text label against the alias table. The
// match is a case-insensitive substring test in either direction; an empty
// label never matches.
func matchCategory(label string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(label))
	if needle == "" {
		return "", false
	}
	for _, group := range categoryGroups {
		for _, alias := range group {
			lower := strings.ToLower(alias)
			if strings.Contains(needle, lower) || strings.Contains(lower, needle) {
				return group[0], true
			}
		}
	}
	return "", false
}
