package ledger

import (
	"bufio"
	"strings"

	"github.com/google/uuid"
)

// Parser turns raw statement page text into categorized transactions.
// Statements are full of non-transaction lines (headers, footers, running
// balances); a line that matches no parse rule is simply skipped.
type Parser struct {
	rules       []ParseRule
	categorizer *Categorizer
	year        int
}

// NewParser creates a parser with the default rule tables. year is applied
// to statement layouts whose dates omit it.
func NewParser(year int) *Parser {
	return &Parser{
		rules:       DefaultParseRules(),
		categorizer: NewCategorizer(DefaultKeywordRules()),
		year:        year,
	}
}

// NewParserWithRules creates a parser with explicit rule tables.
func NewParserWithRules(year int, rules []ParseRule, keywords []KeywordRule) *Parser {
	return &Parser{
		rules:       rules,
		categorizer: NewCategorizer(keywords),
		year:        year,
	}
}

// ParseLine applies the rule table to a single line, first match wins.
// The second return value reports whether any rule recognized the line.
func (p *Parser) ParseLine(line string) (Transaction, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Transaction{}, false
	}

	for _, rule := range p.rules {
		m := rule.Pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tx, err := rule.Build(m, p.year)
		if err != nil {
			// Matched the shape but not the content (bad date or amount);
			// treat like any other unrecognized line.
			continue
		}
		return tx, true
	}
	return Transaction{}, false
}

// Parse extracts every transaction from one page of statement text. Each
// transaction gets a fresh ID, its category, and its source coordinates.
func (p *Parser) Parse(statement string, page int, text string) []Transaction {
	var txs []Transaction

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		tx, ok := p.ParseLine(scanner.Text())
		if !ok {
			continue
		}
		tx.ID = uuid.NewString()
		tx.Statement = statement
		tx.Page = page
		tx.Category = p.categorizer.categoryForTransaction(&tx)
		txs = append(txs, tx)
	}

	return txs
}
