package ledger

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ParseRule recognizes one statement-line layout. Rules are tried in table
// order against each line; the first rule that matches wins and later rules
// are not consulted for that line.
type ParseRule struct {
	Name    string
	Pattern *regexp.Regexp
	// Build converts the regexp submatches into a transaction. year supplies
	// the statement year for layouts whose dates carry none.
	Build func(m []string, year int) (Transaction, error)
}

// DefaultParseRules returns the ordered rule table.
//
// The primary rule matches full-date lines:
//
//	12/31/2017 Some transaction description 1,234.56
//
// The secondary rule matches short-date lines with separate debit and credit
// columns, as printed by statements that omit the year:
//
//	01 Dec Account Fee 4.00 $804.80 CR
//
// For the secondary layout a non-zero debit becomes a negative amount,
// otherwise the credit column is taken as a positive amount.
func DefaultParseRules() []ParseRule {
	return []ParseRule{
		{
			Name: "full-date",
			Pattern: regexp.MustCompile(
				`(\d{2}/\d{2}/\d{4})\s+([A-Za-z0-9 \-.,&]+?)\s+(-?)\$?([\d,]+\.\d{2})`,
			),
			Build: buildFullDate,
		},
		{
			Name: "short-date-debit-credit",
			Pattern: regexp.MustCompile(
				`^(\d{1,2}\s+[A-Za-z]{3})\s+([\w\s\-.,&]+?)\s+\$?([\d,]+\.\d{2})\s+\$?([\d,]+\.\d{2})`,
			),
			Build: buildShortDate,
		},
	}
}

func buildFullDate(m []string, _ int) (Transaction, error) {
	t, err := time.Parse("01/02/2006", m[1])
	if err != nil {
		return Transaction{}, fmt.Errorf("parse date %q: %w", m[1], err)
	}

	amount, err := parseAmount(m[4])
	if err != nil {
		return Transaction{}, err
	}
	if m[3] == "-" {
		amount = amount.Neg()
	}

	return Transaction{
		Date:        civil.DateOf(t),
		Description: strings.TrimSpace(m[2]),
		Amount:      amount,
	}, nil
}

func buildShortDate(m []string, year int) (Transaction, error) {
	t, err := time.Parse("2 Jan 2006", fmt.Sprintf("%s %d", m[1], year))
	if err != nil {
		return Transaction{}, fmt.Errorf("parse short date %q: %w", m[1], err)
	}

	debit, err := parseAmount(m[3])
	if err != nil {
		return Transaction{}, err
	}
	credit, err := parseAmount(m[4])
	if err != nil {
		return Transaction{}, err
	}

	amount := credit
	if debit.IsPositive() {
		amount = debit.Neg()
	}

	return Transaction{
		Date:        civil.DateOf(t),
		Description: strings.TrimSpace(m[2]),
		Amount:      amount,
	}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer("$", "", ",", "").Replace(s)
	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return amount, nil
}
