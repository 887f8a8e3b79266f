package receipt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"nomina-core/internal/receipt"
)

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to string }{
		{receipt.StatusPending, receipt.StatusCalculating},
		{receipt.StatusPending, receipt.StatusCalculated},
		{receipt.StatusPending, receipt.StatusCancelled},
		{receipt.StatusCalculating, receipt.StatusCalculated},
		{receipt.StatusCalculated, receipt.StatusApproved},
		{receipt.StatusCalculated, receipt.StatusCancelled},
		{receipt.StatusApproved, receipt.StatusStamping},
		{receipt.StatusApproved, receipt.StatusCancelled},
		{receipt.StatusStamping, receipt.StatusStampOK},
		{receipt.StatusStamping, receipt.StatusStampError},
		{receipt.StatusStampOK, receipt.StatusPaid},
		{receipt.StatusStampOK, receipt.StatusCancelled},
		{receipt.StatusStampError, receipt.StatusStamping},
	}
	for _, tc := range legal {
		assert.True(t, receipt.CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct{ from, to string }{
		{receipt.StatusPending, receipt.StatusApproved},
		{receipt.StatusPending, receipt.StatusStamping},
		{receipt.StatusCalculated, receipt.StatusStamping},
		{receipt.StatusStamping, receipt.StatusCancelled},
		{receipt.StatusStampOK, receipt.StatusStamping},
		{receipt.StatusPaid, receipt.StatusCancelled},
		{receipt.StatusCancelled, receipt.StatusPending},
		{receipt.StatusSuperseded, receipt.StatusCalculated},
		{receipt.StatusStampError, receipt.StatusStampOK},
	}
	for _, tc := range illegal {
		assert.False(t, receipt.CanTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestNonTerminalStatusesCanBeSuperseded(t *testing.T) {
	for _, status := range []string{
		receipt.StatusPending,
		receipt.StatusCalculating,
		receipt.StatusCalculated,
		receipt.StatusApproved,
		receipt.StatusStamping,
		receipt.StatusStampOK,
		receipt.StatusStampError,
	} {
		assert.True(t, receipt.CanTransition(status, receipt.StatusSuperseded), "%s should be supersedable", status)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, receipt.IsTerminal(receipt.StatusPaid))
	assert.True(t, receipt.IsTerminal(receipt.StatusCancelled))
	assert.True(t, receipt.IsTerminal(receipt.StatusSuperseded))

	assert.False(t, receipt.IsTerminal(receipt.StatusPending))
	assert.False(t, receipt.IsTerminal(receipt.StatusStampOK))
	assert.False(t, receipt.IsTerminal(receipt.StatusStampError))
}

func TestModifiable(t *testing.T) {
	assert.True(t, receipt.Modifiable(receipt.StatusPending))
	assert.True(t, receipt.Modifiable(receipt.StatusCalculated))
	assert.True(t, receipt.Modifiable(receipt.StatusApproved))

	assert.False(t, receipt.Modifiable(receipt.StatusCalculating))
	assert.False(t, receipt.Modifiable(receipt.StatusStamping))
	assert.False(t, receipt.Modifiable(receipt.StatusStampOK))
	assert.False(t, receipt.Modifiable(receipt.StatusPaid))
	assert.False(t, receipt.Modifiable(receipt.StatusCancelled))
	assert.False(t, receipt.Modifiable(receipt.StatusSuperseded))
}

func TestValidStatusAndReason(t *testing.T) {
	assert.True(t, receipt.ValidStatus(receipt.StatusStamping))
	assert.False(t, receipt.ValidStatus("DRAFT"))

	assert.True(t, receipt.ValidReason(receipt.ReasonCorrection))
	assert.False(t, receipt.ValidReason("WHIM"))
}
