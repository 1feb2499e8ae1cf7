package pricing

import "fmt"

// Rule transforms a running total. Implementations must be pure: the result depends only
// on the running total, the cart and the rule's own construction-time configuration, and
// the cart must not be modified. A nil cart means no context is available.
type Rule interface {
	Apply(total Money, cart *Cart) (Money, error)
}

// RuleFunc adapts an ordinary function to the Rule interface.
type RuleFunc func(total Money, cart *Cart) (Money, error)

// Apply implements Rule.
func (f RuleFunc) Apply(total Money, cart *Cart) (Money, error) {
	return f(total, cart)
}

type namedRule struct {
	name string
	fn   RuleFunc
}

func (r namedRule) Apply(total Money, cart *Cart) (Money, error) { return r.fn(total, cart) }
func (r namedRule) Name() string                                 { return r.name }

// NamedFunc wraps fn as a Rule that reports name from Name.
func NamedFunc(name string, fn RuleFunc) Rule {
	return namedRule{name: name, fn: fn}
}

// RuleName returns the rule's self-reported name, falling back to its Go type.
func RuleName(rule Rule) string {
	if n, ok := rule.(interface{ Name() string }); ok {
		if name := n.Name(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("%T", rule)
}
