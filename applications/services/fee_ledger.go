package services

import (
	"fmt"

	"permit-processing-backend/db/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeeInput is one itemized charge submitted with an assessment.
type FeeInput struct {
	Particular string          `json:"particular"`
	Amount     decimal.Decimal `json:"amount"`
}

// BuildFeeLedger validates assessment input and produces ordered line items
// plus the derived total. The total is never accepted from the caller.
func BuildFeeLedger(applicationID uuid.UUID, items []FeeInput) ([]models.FeeLineItem, decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, decimal.Zero, fmt.Errorf("%w: fee assessment requires at least one line item", ErrValidation)
	}

	ledger := make([]models.FeeLineItem, 0, len(items))
	total := decimal.Zero
	for i, in := range items {
		if in.Particular == "" {
			return nil, decimal.Zero, fmt.Errorf("%w: fee line %d is missing a particular", ErrValidation, i+1)
		}
		if in.Amount.IsNegative() {
			return nil, decimal.Zero, fmt.Errorf("%w: fee line %q has a negative amount", ErrValidation, in.Particular)
		}
		ledger = append(ledger, models.FeeLineItem{
			ApplicationID: applicationID,
			Position:      i + 1,
			Particular:    in.Particular,
			Amount:        in.Amount,
		})
		total = total.Add(in.Amount)
	}
	return ledger, total, nil
}

// ComputeFeeTotal sums a ledger. TotalAmountDue on the application must
// always equal this value.
func ComputeFeeTotal(items []models.FeeLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}

// RemoveFeeItem drops the line at the given position (1-based), renumbers the
// remainder and returns the new derived total.
func RemoveFeeItem(items []models.FeeLineItem, position int) ([]models.FeeLineItem, decimal.Decimal, error) {
	if position < 1 || position > len(items) {
		return nil, decimal.Zero, fmt.Errorf("%w: fee line position %d does not exist", ErrValidation, position)
	}

	out := make([]models.FeeLineItem, 0, len(items)-1)
	for _, item := range items {
		if item.Position == position {
			continue
		}
		out = append(out, item)
	}
	for i := range out {
		out[i].Position = i + 1
	}
	return out, ComputeFeeTotal(out), nil
}
