package app

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/pricing-pipeline/internal/config"
	"github.com/noah-isme/pricing-pipeline/internal/pricing"
)

// RuleSpec describes one pipeline entry. Fields other than Name are optional and only
// read by the rules that need them.
type RuleSpec struct {
	Name    string `yaml:"name"`
	Label   string `yaml:"label"`
	Percent string `yaml:"percent"`
	Amount  string `yaml:"amount"`
	Active  *bool  `yaml:"active"`
}

type rulesFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

type ruleFactory func(spec RuleSpec, cfg config.PricingConfig) (pricing.Rule, error)

var ruleFactories = map[string]ruleFactory{
	"newyear": func(RuleSpec, config.PricingConfig) (pricing.Rule, error) {
		return pricing.NewYearDiscount(), nil
	},
	"loyalty": func(RuleSpec, config.PricingConfig) (pricing.Rule, error) {
		return pricing.NewLoyaltyDiscount(), nil
	},
	"oem": func(spec RuleSpec, cfg config.PricingConfig) (pricing.Rule, error) {
		active := cfg.OEMActive
		if spec.Active != nil {
			active = *spec.Active
		}
		return pricing.OEMCampaign(active), nil
	},
	"gst": func(RuleSpec, config.PricingConfig) (pricing.Rule, error) {
		return pricing.GSTRule(), nil
	},
	"flat": func(spec RuleSpec, cfg config.PricingConfig) (pricing.Rule, error) {
		raw := spec.Amount
		if strings.TrimSpace(raw) == "" {
			raw = cfg.FlatAmount
		}
		amount, err := nonNegative("amount", raw)
		if err != nil {
			return nil, err
		}
		return pricing.FlatAmountOff{Label: labelOr(spec.Label, "flat"), Amount: amount}, nil
	},
	"percent_off": func(spec RuleSpec, _ config.PricingConfig) (pricing.Rule, error) {
		pct, err := nonNegative("percent", spec.Percent)
		if err != nil {
			return nil, err
		}
		return pricing.PercentOff(labelOr(spec.Label, "percent-off"), pct), nil
	},
	"surcharge": func(spec RuleSpec, _ config.PricingConfig) (pricing.Rule, error) {
		pct, err := nonNegative("percent", spec.Percent)
		if err != nil {
			return nil, err
		}
		return pricing.Surcharge(labelOr(spec.Label, "surcharge"), pct), nil
	},
}

// KnownRules lists the accepted rule names.
func KnownRules() []string {
	names := make([]string, 0, len(ruleFactories))
	for name := range ruleFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadRuleSpecs reads an ordered rule list from a YAML file of the form
//
//	rules:
//	  - name: oem
//	    active: true
//	  - name: gst
func LoadRuleSpecs(path string) ([]RuleSpec, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer file.Close()

	var doc rulesFile
	if err := yaml.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rules file %s: %w", path, err)
	}
	return doc.Rules, nil
}

// BuildRegistry registers the configured rules in order. PRICING_RULES_FILE takes
// precedence over the PRICING_RULES name list.
func BuildRegistry(cfg config.PricingConfig) (*pricing.Registry, error) {
	var specs []RuleSpec
	if cfg.RulesFile != "" {
		loaded, err := LoadRuleSpecs(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		specs = loaded
	} else {
		for _, name := range cfg.Rules {
			specs = append(specs, RuleSpec{Name: name})
		}
	}
	return BuildRegistryFromSpecs(specs, cfg)
}

// BuildRegistryFromSpecs resolves each spec through the rule table. Unknown names fail
// composition.
func BuildRegistryFromSpecs(specs []RuleSpec, cfg config.PricingConfig) (*pricing.Registry, error) {
	reg := pricing.NewRegistry()
	for i, spec := range specs {
		name := strings.ToLower(strings.TrimSpace(spec.Name))
		if name == "" {
			continue
		}
		factory, ok := ruleFactories[name]
		if !ok {
			return nil, fmt.Errorf("unknown pricing rule %q at position %d (known: %s)", name, i+1, strings.Join(KnownRules(), ", "))
		}
		rule, err := factory(spec, cfg)
		if err != nil {
			return nil, fmt.Errorf("build pricing rule %q: %w", name, err)
		}
		reg.RegisterFactory(func() pricing.Rule { return rule })
	}
	return reg, nil
}

func nonNegative(field, raw string) (pricing.Money, error) {
	value, err := pricing.ParseMoney(raw)
	if err != nil {
		return pricing.Zero, fmt.Errorf("%s: %w", field, err)
	}
	if value.IsNegative() {
		return pricing.Zero, fmt.Errorf("%s: %w: must not be negative", field, pricing.ErrInvalidInput)
	}
	return value, nil
}

func labelOr(label, fallback string) string {
	if l := strings.TrimSpace(label); l != "" {
		return l
	}
	return fallback
}
