package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFeeLedgerDerivesTotal(t *testing.T) {
	appID := uuid.New()

	ledger, total, err := BuildFeeLedger(appID, []FeeInput{
		{Particular: "Filing fee", Amount: decimal.NewFromInt(500)},
		{Particular: "Inspection fee", Amount: decimal.NewFromFloat(1250.50)},
		{Particular: "Fire clearance", Amount: decimal.Zero},
	})

	require.NoError(t, err)
	require.Len(t, ledger, 3)
	assert.Equal(t, "1750.5", total.String())
	assert.Equal(t, total, ComputeFeeTotal(ledger))

	for i, item := range ledger {
		assert.Equal(t, i+1, item.Position)
		assert.Equal(t, appID, item.ApplicationID)
	}
}

func TestBuildFeeLedgerRejectsEmptyInput(t *testing.T) {
	_, _, err := BuildFeeLedger(uuid.New(), nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestBuildFeeLedgerRejectsMissingParticular(t *testing.T) {
	_, _, err := BuildFeeLedger(uuid.New(), []FeeInput{
		{Particular: "", Amount: decimal.NewFromInt(100)},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestBuildFeeLedgerRejectsNegativeAmount(t *testing.T) {
	_, _, err := BuildFeeLedger(uuid.New(), []FeeInput{
		{Particular: "Filing fee", Amount: decimal.NewFromInt(-1)},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestRemoveFeeItemRenumbersAndRecomputes(t *testing.T) {
	appID := uuid.New()
	ledger, _, err := BuildFeeLedger(appID, []FeeInput{
		{Particular: "Filing fee", Amount: decimal.NewFromInt(500)},
		{Particular: "Inspection fee", Amount: decimal.NewFromInt(1000)},
		{Particular: "Fire clearance", Amount: decimal.NewFromInt(250)},
	})
	require.NoError(t, err)

	out, total, err := RemoveFeeItem(ledger, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "750", total.String())
	assert.Equal(t, "Filing fee", out[0].Particular)
	assert.Equal(t, 1, out[0].Position)
	assert.Equal(t, "Fire clearance", out[1].Particular)
	assert.Equal(t, 2, out[1].Position)
}

func TestRemoveFeeItemInvalidPosition(t *testing.T) {
	ledger, _, err := BuildFeeLedger(uuid.New(), []FeeInput{
		{Particular: "Filing fee", Amount: decimal.NewFromInt(500)},
	})
	require.NoError(t, err)

	_, _, err = RemoveFeeItem(ledger, 0)
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = RemoveFeeItem(ledger, 2)
	require.ErrorIs(t, err, ErrValidation)
}
