package pricing

// Percentage multiplies the running total by a fixed factor, e.g. 0.90 for 10% off or
// 1.18 for an 18% surcharge.
type Percentage struct {
	Label  string
	Factor Money
}

// PercentOff returns a discount of pct percent. Values outside [0, 100] are clamped.
func PercentOff(label string, pct Money) Percentage {
	return Percentage{Label: label, Factor: percentFactor(pct, -1)}
}

// Surcharge returns a markup of pct percent. Negative values are treated as zero.
func Surcharge(label string, pct Money) Percentage {
	return Percentage{Label: label, Factor: percentFactor(pct, 1)}
}

// NewYearDiscount is the seasonal 10% discount.
func NewYearDiscount() Percentage {
	return PercentOff("new-year", NewMoney(10))
}

// GSTRule adds 18% goods and services tax.
func GSTRule() Percentage {
	return Surcharge("gst", NewMoney(18))
}

// Apply implements Rule.
func (p Percentage) Apply(total Money, _ *Cart) (Money, error) {
	return total.Mul(p.Factor), nil
}

// Name implements the optional naming hook used by RuleName.
func (p Percentage) Name() string { return p.Label }

// LoyaltyDiscount applies Factor only for gold customers.
type LoyaltyDiscount struct {
	Factor Money
}

// NewLoyaltyDiscount returns the standard 5% gold-customer discount.
func NewLoyaltyDiscount() LoyaltyDiscount {
	return LoyaltyDiscount{Factor: percentFactor(NewMoney(5), -1)}
}

// Apply implements Rule. Without a cart the customer is unknown and the total is unchanged.
func (l LoyaltyDiscount) Apply(total Money, cart *Cart) (Money, error) {
	if cart == nil || !cart.Customer.Gold {
		return total, nil
	}
	return total.Mul(l.Factor), nil
}

// Name implements the optional naming hook used by RuleName.
func (LoyaltyDiscount) Name() string { return "loyalty" }

// CampaignRule applies Factor while the campaign flag captured at construction is set.
type CampaignRule struct {
	Label  string
	Active bool
	Factor Money
}

// OEMCampaign is the 10% manufacturer campaign.
func OEMCampaign(active bool) CampaignRule {
	return CampaignRule{Label: "oem-campaign", Active: active, Factor: percentFactor(NewMoney(10), -1)}
}

// Apply implements Rule.
func (c CampaignRule) Apply(total Money, _ *Cart) (Money, error) {
	if !c.Active {
		return total, nil
	}
	return total.Mul(c.Factor), nil
}

// Name implements the optional naming hook used by RuleName.
func (c CampaignRule) Name() string { return c.Label }

// FlatAmountOff subtracts a fixed amount. It never raises the total and never returns
// a negative one; a negative Amount is ignored.
type FlatAmountOff struct {
	Label  string
	Amount Money
}

// Apply implements Rule.
func (f FlatAmountOff) Apply(total Money, _ *Cart) (Money, error) {
	if f.Amount.IsNegative() {
		return total, nil
	}
	out := total.Sub(f.Amount)
	if out.IsNegative() {
		return Zero, nil
	}
	return out, nil
}

// Name implements the optional naming hook used by RuleName.
func (f FlatAmountOff) Name() string { return f.Label }
