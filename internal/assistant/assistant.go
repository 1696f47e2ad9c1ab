package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Ledger is the part of the ledger service the assistant drives.
type Ledger interface {
	Today() core.Date
	TotalForMonth(ctx context.Context, userID int64, month core.Month) (decimal.Decimal, error)
	HighestInMonth(ctx context.Context, userID int64, month core.Month) (core.Transaction, bool, error)
	ListByCategory(ctx context.Context, userID int64, category string) ([]core.Transaction, error)
	SetBudget(ctx context.Context, userID int64, month core.Month, amount decimal.Decimal) (core.Budget, error)
}

// Reply is the assistant's answer. Transactions is only set for category listings.
type Reply struct {
	Intent       Intent
	Message      string
	Month        core.Month
	Category     string
	Transactions []core.Transaction
}

const unknownMessage = "I'm not sure how to answer that. Try asking about budget or expenses."

type Assistant struct {
	ledger     Ledger
	classifier Classifier
}

func New(ledger Ledger, classifier Classifier) *Assistant {
	if classifier == nil {
		classifier = NewRulesClassifier()
	}
	return &Assistant{ledger: ledger, classifier: classifier}
}

// Answer classifies query and runs the matching ledger operation for userID.
func (a *Assistant) Answer(ctx context.Context, userID int64, query string) (Reply, error) {
	if strings.TrimSpace(query) == "" {
		return Reply{}, core.Fail(log.OpAssist, userID, ErrEmptyQuery)
	}

	c, err := a.classifier.Classify(ctx, query)
	if err != nil {
		return Reply{}, core.Fail(log.OpAssist, userID, err)
	}
	current := a.ledger.Today().Period()

	slog.InfoContext(ctx, "Assistant query classified",
		log.FieldComponent, log.ComponentAssistant,
		log.FieldUserID, userID,
		log.FieldIntent, string(c.Intent))

	switch c.Intent {
	case IntentTotalForMonth:
		month := c.Month
		if month.IsZero() {
			month = current
		}
		total, err := a.ledger.TotalForMonth(ctx, userID, month)
		if err != nil {
			return Reply{}, err
		}
		return Reply{
			Intent:  c.Intent,
			Month:   month,
			Message: fmt.Sprintf("Your total expenses for %s are %s.", month, total.StringFixed(2)),
		}, nil

	case IntentHighestThisMonth:
		t, ok, err := a.ledger.HighestInMonth(ctx, userID, current)
		if err != nil {
			return Reply{}, err
		}
		msg := "You have no expenses this month."
		if ok {
			msg = fmt.Sprintf("Your highest expense this month is %s in %s.", t.Amount.StringFixed(2), t.Category)
		}
		return Reply{Intent: c.Intent, Month: current, Category: t.Category, Message: msg}, nil

	case IntentListByCategory:
		if c.Category == "" {
			return Reply{}, core.Fail(log.OpAssist, userID, ErrNoCategory)
		}
		txs, err := a.ledger.ListByCategory(ctx, userID, c.Category)
		if err != nil {
			return Reply{}, err
		}
		return Reply{
			Intent:       c.Intent,
			Category:     c.Category,
			Transactions: txs,
			Message:      fmt.Sprintf("Found %d expenses in the %s category.", len(txs), c.Category),
		}, nil

	case IntentSetBudget:
		if !c.Amount.Valid {
			return Reply{}, core.Fail(log.OpAssist, userID, ErrNoBudgetAmount)
		}
		month := c.Month
		if month.IsZero() {
			month = current
		}
		b, err := a.ledger.SetBudget(ctx, userID, month, c.Amount.Decimal)
		if err != nil {
			return Reply{}, err
		}
		return Reply{
			Intent:  c.Intent,
			Month:   month,
			Message: fmt.Sprintf("Budget set to %s for %s!", b.Amount.StringFixed(2), month),
		}, nil
	}

	return Reply{Intent: IntentUnknown, Message: unknownMessage}, nil
}
