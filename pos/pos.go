// Package pos computes the point-of-sale cart of the merchant terminal page.
package pos

import (
	"math"
	"sort"
)

// Product is a catalog entry sold at the terminal.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	TaxRate     float64 `json:"taxRate"` // e.g. 0.1 for 10% VAT
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
}

// Line is one product in the cart.
type Line struct {
	Product  Product
	Quantity int
}

func (l Line) Amount() float64 {
	return l.Product.Price * float64(l.Quantity)
}

// Totals of a cart, rounded to cents.
type Totals struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// Cart keeps lines in insertion order. The zero value is an empty cart.
type Cart struct {
	lines []Line
}

// Add puts one more unit of p in the cart.
func (c *Cart) Add(p Product) {
	for i := range c.lines {
		if c.lines[i].Product.ID == p.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: 1})
}

// SetQuantity changes the quantity of a line; a quantity of zero or less removes it.
// Unknown products are ignored.
func (c *Cart) SetQuantity(productID string, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines[i].Quantity = quantity
			return
		}
	}
}

func (c *Cart) Remove(productID string) {
	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Totals() Totals {
	var subtotal, tax float64
	for _, l := range c.lines {
		subtotal += l.Amount()
		tax += l.Amount() * l.Product.TaxRate
	}
	return Totals{
		Subtotal: roundCents(subtotal),
		Tax:      roundCents(tax),
		Total:    roundCents(subtotal + tax),
	}
}

// FromQuantities builds a cart from a product id -> quantity map, as posted back by
// the terminal form. Products missing from the catalog are skipped. Lines follow
// catalog order.
func FromQuantities(catalog []Product, quantities map[string]int) *Cart {
	cart := &Cart{}
	for _, p := range catalog {
		if q := quantities[p.ID]; q > 0 {
			cart.Add(p)
			cart.SetQuantity(p.ID, q)
		}
	}
	return cart
}

// Categories returns the distinct categories of the catalog, sorted.
func Categories(catalog []Product) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range catalog {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
