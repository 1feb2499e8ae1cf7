package pricing

import (
	"fmt"
	"strings"
)

// CartItem describes a single line item used for pricing calculation.
type CartItem struct {
	Name  string `json:"name"`
	Price Money  `json:"price"`
	Qty   int    `json:"qty"`
}

// NewCartItem validates and constructs a line item.
func NewCartItem(name string, price Money, qty int) (CartItem, error) {
	item := CartItem{Name: strings.TrimSpace(name), Price: price, Qty: qty}
	if err := item.Validate(); err != nil {
		return CartItem{}, err
	}
	return item, nil
}

// Validate reports whether the line item satisfies price >= 0 and qty >= 1.
func (i CartItem) Validate() error {
	if i.Price.IsNegative() {
		return fmt.Errorf("%w: item %q has negative price %s", ErrInvalidInput, i.Name, i.Price)
	}
	if i.Qty < 1 {
		return fmt.Errorf("%w: item %q has non-positive quantity %d", ErrInvalidInput, i.Name, i.Qty)
	}
	return nil
}

// LineTotal returns price multiplied by quantity.
func (i CartItem) LineTotal() Money {
	return i.Price.Mul(NewMoney(int64(i.Qty)))
}

// Customer is the purchaser attached to a cart.
type Customer struct {
	Email string `json:"email"`
	Gold  bool   `json:"gold"`
}

// NewCustomer validates and constructs a customer.
func NewCustomer(email string, gold bool) (Customer, error) {
	c := Customer{Email: strings.TrimSpace(email), Gold: gold}
	if err := c.Validate(); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// Validate requires a non-empty email.
func (c Customer) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("%w: customer email is required", ErrInvalidInput)
	}
	return nil
}

// Cart is the pricing context handed to every rule. Rules must treat it as read-only.
type Cart struct {
	Items    []CartItem `json:"items"`
	Customer Customer   `json:"customer"`
}

// NewCart validates the customer and items and returns a cart holding its own copy of items.
func NewCart(customer Customer, items ...CartItem) (*Cart, error) {
	cart := &Cart{
		Items:    append([]CartItem(nil), items...),
		Customer: customer,
	}
	if err := cart.Validate(); err != nil {
		return nil, err
	}
	return cart, nil
}

// Validate re-checks every invariant, for carts assembled as struct literals.
func (c *Cart) Validate() error {
	if c == nil {
		return nil
	}
	if err := c.Customer.Validate(); err != nil {
		return err
	}
	for _, item := range c.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Subtotal sums the line totals. An empty or nil cart has a zero subtotal.
func (c *Cart) Subtotal() Money {
	if c == nil {
		return Zero
	}
	subtotal := Zero
	for _, item := range c.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}
