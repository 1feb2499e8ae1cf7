package pricing

import "errors"

// ErrInvalidInput is returned when a price, quantity, customer or base amount violates the
// invariants of the pricing model. Callers should match it with errors.Is.
var ErrInvalidInput = errors.New("pricing: invalid input")
