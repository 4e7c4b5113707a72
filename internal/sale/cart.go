package sale

import (
	"errors"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"kasirinaja/desktop/internal/domain"
)

var (
	ErrInvalidItem = errors.New("invalid cart item")
	ErrNoSuchLine  = errors.New("cart line does not exist")
)

// Cart is the line list being rung up. Adding a product already in the cart
// bumps its quantity instead of adding a second line.
type Cart struct {
	mu    sync.Mutex
	items []domain.CartItem
}

func NewCart() *Cart {
	return &Cart{}
}

func (c *Cart) AddItem(productID int64, name string, price decimal.Decimal) error {
	if price.IsNegative() {
		return ErrInvalidItem
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items[i].Quantity++
			c.items[i].LineTotal = c.items[i].UnitPrice.Mul(decimal.NewFromInt(int64(c.items[i].Quantity)))
			return nil
		}
	}

	c.items = append(c.items, domain.CartItem{
		ProductID:   productID,
		ProductName: strings.TrimSpace(name),
		UnitPrice:   price,
		Quantity:    1,
		LineTotal:   price,
	})
	return nil
}

func (c *Cart) RemoveItem(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.items) {
		return ErrNoSuchLine
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
