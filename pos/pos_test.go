package pos_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zenty/portal/pos"
)

var (
	espresso  = pos.Product{ID: "1", Name: "Café Expresso", Price: 2.50, TaxRate: 0.1, Category: "Boissons"}
	croissant = pos.Product{ID: "2", Name: "Croissant", Price: 1.80, TaxRate: 0.1, Category: "Viennoiseries"}
	cola      = pos.Product{ID: "5", Name: "Coca Cola", Price: 2.20, TaxRate: 0.2, Category: "Boissons"}
)

func TestCart_AddAndTotals(t *testing.T) {
	var cart pos.Cart
	require.True(t, cart.Empty())

	cart.Add(espresso)
	cart.Add(espresso)
	cart.Add(cola)

	lines := cart.Lines()
	require.Len(t, lines, 2)
	require.Equal(t, 2, lines[0].Quantity)
	require.Equal(t, "5", lines[1].Product.ID)

	totals := cart.Totals()
	require.InDelta(t, 7.20, totals.Subtotal, 0.001)
	require.InDelta(t, 0.94, totals.Tax, 0.001) // 0.50 + 0.44
	require.InDelta(t, 8.14, totals.Total, 0.001)
}

func TestCart_SetQuantity(t *testing.T) {
	var cart pos.Cart
	cart.Add(espresso)
	cart.Add(croissant)

	cart.SetQuantity("2", 4)
	require.Equal(t, 4, cart.Lines()[1].Quantity)

	cart.SetQuantity("unknown", 3)
	require.Len(t, cart.Lines(), 2)

	cart.SetQuantity("1", 0)
	require.Len(t, cart.Lines(), 1)
	require.Equal(t, "2", cart.Lines()[0].Product.ID)

	cart.SetQuantity("2", -1)
	require.True(t, cart.Empty())
}

func TestCart_RemoveAndClear(t *testing.T) {
	var cart pos.Cart
	cart.Add(espresso)
	cart.Add(cola)

	cart.Remove("1")
	require.Len(t, cart.Lines(), 1)

	cart.Clear()
	require.True(t, cart.Empty())
	require.Equal(t, pos.Totals{}, cart.Totals())
}

func TestFromQuantities(t *testing.T) {
	catalog := []pos.Product{espresso, croissant, cola}
	cart := pos.FromQuantities(catalog, map[string]int{"5": 2, "1": 1, "2": 0, "ghost": 3})

	lines := cart.Lines()
	require.Len(t, lines, 2)
	require.Equal(t, "1", lines[0].Product.ID)
	require.Equal(t, "5", lines[1].Product.ID)
	require.Equal(t, 2, lines[1].Quantity)
}

func TestCategories(t *testing.T) {
	require.Equal(t, []string{"Boissons", "Viennoiseries"}, pos.Categories([]pos.Product{espresso, croissant, cola}))
}
