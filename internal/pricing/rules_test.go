package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-pipeline/internal/pricing"
)

func TestLoyaltyDiscountOnlyForGold(t *testing.T) {
	rule := pricing.NewLoyaltyDiscount()

	got, err := rule.Apply(pricing.NewMoney(100), goldCart(t))
	require.NoError(t, err)
	requireMoney(t, "95", got)

	regular, err := pricing.NewCustomer("r@b.com", false)
	require.NoError(t, err)
	cart, err := pricing.NewCart(regular)
	require.NoError(t, err)
	got, err = rule.Apply(pricing.NewMoney(100), cart)
	require.NoError(t, err)
	requireMoney(t, "100", got)

	got, err = rule.Apply(pricing.NewMoney(100), nil)
	require.NoError(t, err)
	requireMoney(t, "100", got)
}

func TestCampaignRuleRespectsFlag(t *testing.T) {
	got, err := pricing.OEMCampaign(false).Apply(pricing.NewMoney(1000), nil)
	require.NoError(t, err)
	requireMoney(t, "1000", got)

	got, err = pricing.OEMCampaign(true).Apply(pricing.NewMoney(1000), nil)
	require.NoError(t, err)
	requireMoney(t, "900", got)
}

func TestPercentageHelpers(t *testing.T) {
	requireMoney(t, "0.9", pricing.NewYearDiscount().Factor)
	requireMoney(t, "1.18", pricing.GSTRule().Factor)
	requireMoney(t, "0", pricing.PercentOff("all", pricing.NewMoney(150)).Factor)
	requireMoney(t, "1", pricing.Surcharge("none", pricing.NewMoney(-3)).Factor)
}

func TestFlatAmountOffClampsAtZero(t *testing.T) {
	rule := pricing.FlatAmountOff{Label: "voucher", Amount: pricing.NewMoney(50)}
	got, err := rule.Apply(pricing.NewMoney(30), nil)
	require.NoError(t, err)
	require.True(t, got.IsZero())

	got, err = pricing.FlatAmountOff{Amount: pricing.NewMoney(-5)}.Apply(pricing.Zero, nil)
	require.NoError(t, err)
	require.True(t, got.IsZero())
}

func TestRuleName(t *testing.T) {
	require.Equal(t, "loyalty", pricing.RuleName(pricing.NewLoyaltyDiscount()))
	require.Equal(t, "gst", pricing.RuleName(pricing.GSTRule()))
	anon := pricing.RuleFunc(func(total pricing.Money, _ *pricing.Cart) (pricing.Money, error) { return total, nil })
	require.Equal(t, "pricing.RuleFunc", pricing.RuleName(anon))
}
