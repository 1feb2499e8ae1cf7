package pricing

import "fmt"

// Pipeline folds an ordered list of rules over a base amount. The order is exactly the
// order supplied at construction; rules are never sorted or regrouped.
type Pipeline struct {
	rules []Rule
}

// Step records the effect of a single rule during Explain.
type Step struct {
	Rule   string `json:"rule"`
	Before Money  `json:"before"`
	After  Money  `json:"after"`
}

// Breakdown is the result of Explain.
type Breakdown struct {
	Base  Money  `json:"base"`
	Total Money  `json:"total"`
	Steps []Step `json:"steps"`
}

// NewPipeline captures rules in the given order. Any sequence is accepted, including an
// empty one; nil entries are dropped. The pipeline keeps its own copy of the slice.
func NewPipeline(rules ...Rule) *Pipeline {
	kept := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if rule != nil {
			kept = append(kept, rule)
		}
	}
	return &Pipeline{rules: kept}
}

// Compute applies every rule left to right, starting from base. A rule error is returned
// as-is and stops the fold; no partial total is reported.
func (p *Pipeline) Compute(base Money, cart *Cart) (Money, error) {
	if err := ValidateInput(base, cart); err != nil {
		return Zero, err
	}
	total := base
	for _, rule := range p.ordered() {
		next, err := rule.Apply(total, cart)
		if err != nil {
			return Zero, err
		}
		total = next
	}
	return total, nil
}

// Explain runs the same fold as Compute and records each intermediate total.
func (p *Pipeline) Explain(base Money, cart *Cart) (Breakdown, error) {
	if err := ValidateInput(base, cart); err != nil {
		return Breakdown{}, err
	}
	rules := p.ordered()
	out := Breakdown{Base: base, Total: base, Steps: make([]Step, 0, len(rules))}
	for _, rule := range rules {
		next, err := rule.Apply(out.Total, cart)
		if err != nil {
			return Breakdown{}, err
		}
		out.Steps = append(out.Steps, Step{Rule: RuleName(rule), Before: out.Total, After: next})
		out.Total = next
	}
	return out, nil
}

// Rules returns a copy of the configured rules in application order.
func (p *Pipeline) Rules() []Rule {
	return append([]Rule(nil), p.ordered()...)
}

// RuleNames lists RuleName for each configured rule in application order.
func (p *Pipeline) RuleNames() []string {
	rules := p.ordered()
	names := make([]string, 0, len(rules))
	for _, rule := range rules {
		names = append(names, RuleName(rule))
	}
	return names
}

// Len reports the number of configured rules.
func (p *Pipeline) Len() int {
	return len(p.ordered())
}

func (p *Pipeline) ordered() []Rule {
	if p == nil {
		return nil
	}
	return p.rules
}

// ValidateInput checks the inputs accepted by Compute: a non-negative base and, when
// present, a cart satisfying its invariants.
func ValidateInput(base Money, cart *Cart) error {
	if base.IsNegative() {
		return fmt.Errorf("%w: negative base amount %s", ErrInvalidInput, base)
	}
	return cart.Validate()
}
