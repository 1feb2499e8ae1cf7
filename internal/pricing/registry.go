package pricing

// Registry accumulates rule contributions from independent registration sites into one
// ordered sequence. Order is registration order; the registry never sorts by name or type.
// A Registry is meant to be filled once by a composition root and is not safe for
// concurrent registration.
type Registry struct {
	rules []Rule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends rules in the given order. Nil rules are ignored.
func (r *Registry) Register(rules ...Rule) *Registry {
	for _, rule := range rules {
		if rule != nil {
			r.rules = append(r.rules, rule)
		}
	}
	return r
}

// RegisterFactory invokes factory immediately and registers the produced rule.
func (r *Registry) RegisterFactory(factory func() Rule) *Registry {
	if factory == nil {
		return r
	}
	return r.Register(factory())
}

// Rules returns a copy of the registered rules.
func (r *Registry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Len reports how many rules have been registered.
func (r *Registry) Len() int {
	return len(r.rules)
}

// Build hands the registered sequence to a new Pipeline.
func (r *Registry) Build() *Pipeline {
	return NewPipeline(r.rules...)
}
