package assistant

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// RulesClassifier recognises intents from keywords. It needs no network and never fails.
type RulesClassifier struct{}

func NewRulesClassifier() *RulesClassifier { return &RulesClassifier{} }

// Grouped thousands ("1,500.25") win over a decimal comma ("750,50").
var (
	monthRe    = regexp.MustCompile(`\b(\d{4}-\d{2})\b`)
	amountRe   = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?\b|\d+(?:[.,]\d{1,2})?\b`)
	groupedRe  = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?$`)
	categoryRe = []*regexp.Regexp{
		regexp.MustCompile(`\bin the ([\p{L}\d_-]+) category\b`),
		regexp.MustCompile(`\bcategory[:\s]+([\p{L}\d_-]+)`),
		regexp.MustCompile(`\bexpenses (?:in|for) ([\p{L}\d_-]+)\b`),
	}
)

func (RulesClassifier) Classify(_ context.Context, query string) (Classification, error) {
	q := normalize(query)
	c := Classification{Intent: IntentUnknown, Month: guessMonth(q)}

	switch {
	case strings.Contains(q, "budget") && (strings.Contains(q, "set") || strings.Contains(q, "update")):
		c.Intent = IntentSetBudget
		c.Amount = guessAmount(q)
	case strings.Contains(q, "highest") || strings.Contains(q, "biggest") || strings.Contains(q, "largest"):
		c.Intent = IntentHighestThisMonth
	case strings.Contains(q, "category") || strings.Contains(q, "list"):
		c.Intent = IntentListByCategory
		c.Category = guessCategory(q)
	case strings.Contains(q, "total") || strings.Contains(q, "spent") ||
		strings.Contains(q, "spend") || strings.Contains(q, "expense"):
		c.Intent = IntentTotalForMonth
	}
	return c, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func guessMonth(q string) core.Month {
	for _, m := range monthRe.FindAllString(q, -1) {
		if month, err := core.ParseMonth(m); err == nil {
			return month
		}
	}
	return core.Month{}
}

// guessAmount ignores anything that looks like a month before searching for a number.
func guessAmount(q string) decimal.NullDecimal {
	q = monthRe.ReplaceAllString(q, " ")
	m := amountRe.FindString(q)
	if m == "" {
		return decimal.NullDecimal{}
	}
	if groupedRe.MatchString(m) {
		m = strings.ReplaceAll(m, ",", "")
	}
	d, err := core.ParseAmount(m)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func guessCategory(q string) string {
	for _, re := range categoryRe {
		if m := re.FindStringSubmatch(q); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}
