package ledger

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// KeywordRule maps a description keyword to a category. Rules are an ordered,
// data-driven table: when a description matches several keywords, the rule
// that appears first in the table wins.
type KeywordRule struct {
	Keyword  string
	Category Category
}

// DefaultKeywordRules returns the built-in categorization table.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{"payroll", CategoryPayroll},
		{"salary", CategoryPayroll},
		{"wages", CategoryPayroll},
		{"paycheck", CategoryPayroll},
		{"deposit", CategoryDeposit},
		{"payment received", CategoryDeposit},
		{"incoming", CategoryDeposit},
		{"transfer", CategoryTransfer},
		{"xfer", CategoryTransfer},
		{"standing order", CategoryTransfer},
		{"account fee", CategoryFees},
		{"service charge", CategoryFees},
		{"monthly fee", CategoryFees},
		{"fee", CategoryFees},
		{"loan", CategoryLoan},
		{"mortgage", CategoryLoan},
		{"interest", CategoryLoan},
		{"repayment", CategoryLoan},
		{"withdrawal", CategoryExpense},
		{"check", CategoryExpense},
		{"card", CategoryExpense},
		{"payment", CategoryExpense},
		{"debit", CategoryExpense},
		{"purchase", CategoryExpense},
		{"credit", CategoryDeposit},
	}
}

type matchEntry struct {
	category Category
	pos      int // position in the rule table; lower wins
}

// Categorizer assigns categories by multi-pattern keyword matching. All
// keywords are scanned in a single pass with an Aho-Corasick matcher, then
// ties resolve to the earliest table entry.
type Categorizer struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	metadata [][]matchEntry
}

// NewCategorizer builds a categorizer from an ordered rule table.
func NewCategorizer(rules []KeywordRule) *Categorizer {
	c := &Categorizer{}

	patternToIndex := make(map[string]int, len(rules))
	for pos, rule := range rules {
		keyword := strings.ToUpper(strings.TrimSpace(rule.Keyword))
		if keyword == "" {
			continue
		}
		entry := matchEntry{category: rule.Category, pos: pos}
		if idx, ok := patternToIndex[keyword]; ok {
			c.metadata[idx] = append(c.metadata[idx], entry)
			continue
		}
		patternToIndex[keyword] = len(c.patterns)
		c.patterns = append(c.patterns, keyword)
		c.metadata = append(c.metadata, []matchEntry{entry})
	}

	if len(c.patterns) > 0 {
		bytePatterns := make([][]byte, len(c.patterns))
		for i, p := range c.patterns {
			bytePatterns[i] = []byte(p)
		}
		c.matcher = ahocorasick.NewMatcher(bytePatterns)
	}

	return c
}

// Categorize returns the category for a description. Descriptions that match
// no keyword return CategoryUncategorized, so the result is always a member
// of the closed set.
func (c *Categorizer) Categorize(description string) Category {
	if c.matcher == nil {
		return CategoryUncategorized
	}

	matches := c.matcher.Match([]byte(strings.ToUpper(description)))
	if len(matches) == 0 {
		return CategoryUncategorized
	}

	best := matchEntry{pos: -1}
	for _, idx := range matches {
		if idx < 0 || idx >= len(c.metadata) {
			continue
		}
		for _, entry := range c.metadata[idx] {
			if best.pos == -1 || entry.pos < best.pos {
				best = entry
			}
		}
	}
	if best.pos == -1 {
		return CategoryUncategorized
	}
	return best.category
}

// categoryForTransaction applies the keyword table and then the sign
// convention: Deposit and Payroll imply a non-negative amount, so a keyword
// match that contradicts the sign demotes to Uncategorized instead of
// breaking the invariant.
func (c *Categorizer) categoryForTransaction(tx *Transaction) Category {
	cat := c.Categorize(tx.Description)
	if (cat == CategoryDeposit || cat == CategoryPayroll) && tx.Amount.IsNegative() {
		return CategoryUncategorized
	}
	return cat
}
