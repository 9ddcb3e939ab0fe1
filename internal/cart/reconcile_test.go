package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(productID string, quantity int, price string) Line {
	unit := decimal.RequireFromString(price)
	return Line{
		ProductID: productID,
		Name:      "Item " + productID,
		Quantity:  quantity,
		UnitPrice: unit,
		Subtotal:  unit.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

func TestReconcileGuestRemovesAndDecrements(t *testing.T) {
	lines := []Line{line("P1", 3, "100.00"), line("P2", 1, "250.00"), line("P3", 2, "40.00")}
	ordered := []OrderedItem{
		{ProductID: "P1", Quantity: 1},
		{ProductID: "P2", Quantity: 2},
		{ProductID: "P9", Quantity: 1},
	}

	remaining := ReconcileGuest(lines, ordered)
	require.Len(t, remaining, 2)
	assert.Equal(t, "P1", remaining[0].ProductID)
	assert.Equal(t, 2, remaining[0].Quantity)
	assert.Equal(t, "200.00", remaining[0].Subtotal.StringFixed(2))
	assert.Equal(t, "P3", remaining[1].ProductID)
	assert.Equal(t, 2, remaining[1].Quantity)

	assert.Len(t, lines, 3, "input slice must not be modified")
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestReconcileGuestUsesCartPrice(t *testing.T) {
	lines := []Line{line("P1", 4, "120.00")}
	remaining := ReconcileGuest(lines, []OrderedItem{{ProductID: "P1", Quantity: 1}})

	require.Len(t, remaining, 1)
	assert.Equal(t, "360.00", remaining[0].Subtotal.StringFixed(2))
	assert.Equal(t, "120.00", remaining[0].UnitPrice.StringFixed(2))
}

func TestReconcileGuestIsIdempotentForRemovedLines(t *testing.T) {
	lines := []Line{line("P1", 2, "10.00")}
	ordered := []OrderedItem{{ProductID: "P1", Quantity: 2}}

	first := ReconcileGuest(lines, ordered)
	assert.Empty(t, first)
	second := ReconcileGuest(first, ordered)
	assert.Empty(t, second)
}

func TestReconcileGuestIgnoresInvalidOrderedLines(t *testing.T) {
	lines := []Line{line("P1", 2, "10.00")}
	remaining := ReconcileGuest(lines, []OrderedItem{
		{ProductID: "P1", Quantity: 0},
		{ProductID: "P1", Quantity: -3},
		{ProductID: "", Quantity: 1},
	})
	require.Len(t, remaining, 1)
	assert.Equal(t, 2, remaining[0].Quantity)
}
