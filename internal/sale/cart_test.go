package sale

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSameProductMergesLine(t *testing.T) {
	cart := NewCart()
	price := decimal.RequireFromString("3500")

	require.NoError(t, cart.AddItem(1, "Mie Goreng Instan", price))
	require.NoError(t, cart.AddItem(1, "Mie Goreng Instan", price))

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[0].LineTotal.Equal(price.Mul(decimal.NewFromInt(2))))
}

func TestTotalAndRemove(t *testing.T) {
	cart := NewCart()
	require.NoError(t, cart.AddItem(1, "Kopi Sachet", decimal.RequireFromString("2600")))
	require.NoError(t, cart.AddItem(2, "Gula 1kg", decimal.RequireFromString("17400.50")))
	require.NoError(t, cart.AddItem(1, "Kopi Sachet", decimal.RequireFromString("2600")))

	assert.True(t, cart.Total().Equal(decimal.RequireFromString("22600.50")), cart.Total().String())

	require.NoError(t, cart.RemoveItem(0))
	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ProductID)

	assert.ErrorIs(t, cart.RemoveItem(1), ErrNoSuchLine)
	assert.ErrorIs(t, cart.RemoveItem(-1), ErrNoSuchLine)

	cart.Clear()
	assert.Zero(t, cart.Len())
	assert.True(t, cart.Total().IsZero())
}

func TestAddRejectsNegativePrice(t *testing.T) {
	cart := NewCart()
	assert.ErrorIs(t, cart.AddItem(1, "Refund", decimal.NewFromInt(-1)), ErrInvalidItem)
	assert.Zero(t, cart.Len())
}

func TestItemsIsACopy(t *testing.T) {
	cart := NewCart()
	require.NoError(t, cart.AddItem(1, "Roti Tawar", decimal.NewFromInt(17800)))

	items := cart.Items()
	items[0].Quantity = 99
	assert.Equal(t, 1, cart.Items()[0].Quantity)
}
