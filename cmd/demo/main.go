package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pricing-pipeline/internal/app"
	"github.com/noah-isme/pricing-pipeline/internal/checkout"
	"github.com/noah-isme/pricing-pipeline/internal/common"
	"github.com/noah-isme/pricing-pipeline/internal/config"
	"github.com/noah-isme/pricing-pipeline/internal/notify"
	"github.com/noah-isme/pricing-pipeline/internal/obs"
	"github.com/noah-isme/pricing-pipeline/internal/order"
	"github.com/noah-isme/pricing-pipeline/internal/pricing"
)

func main() {
	logger := obs.NewLoggerTo(os.Stderr, "console", "info")
	if err := run(context.Background(), logger); err != nil {
		logger.Fatal().Err(err).Msg("demo failed")
	}
}

func run(ctx context.Context, logger zerolog.Logger) error {
	customer, err := pricing.NewCustomer("gold.member@example.com", true)
	if err != nil {
		return err
	}
	filter, err := pricing.NewCartItem("Oil Filter", pricing.NewMoney(400), 1)
	if err != nil {
		return err
	}
	oil, err := pricing.NewCartItem("Engine Oil", pricing.NewMoney(1200), 1)
	if err != nil {
		return err
	}
	cart, err := pricing.NewCart(customer, filter, oil)
	if err != nil {
		return err
	}

	checkoutRules, err := app.BuildRegistry(config.PricingConfig{Rules: []string{"newyear", "loyalty"}})
	if err != nil {
		return err
	}
	svc, err := checkout.NewService(checkout.ServiceConfig{
		Pipeline:         checkoutRules.Build(),
		DiscountsEnabled: true,
		APIBaseURL:       "https://api.example.com",
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	total, err := svc.CalculateTotal(ctx, cart)
	if err != nil {
		return err
	}
	fmt.Printf("Checkout total: %s (subtotal %s, rules %v)\n", total.StringFixed(2), cart.Subtotal().StringFixed(2), svc.RuleNames())

	billingRules, err := app.BuildRegistry(config.PricingConfig{Rules: []string{"oem", "gst"}, OEMActive: true})
	if err != nil {
		return err
	}
	billed, err := billingRules.Build().Compute(pricing.NewMoney(1000), nil)
	if err != nil {
		return err
	}
	fmt.Printf("Billing total: %s (base 1000.00, rules %v)\n", billed.StringFixed(2), billingRules.Build().RuleNames())

	mail := &common.InMemoryEmail{}
	orders := order.NewService(notify.EmailNotifier{Mail: mail, From: "orders@example.com"}, logger)
	placed, err := orders.PlaceOrder(ctx, order.Order{CustomerEmail: customer.Email})
	if err != nil {
		return err
	}
	for _, m := range mail.Sent() {
		fmt.Printf("Order %s: emailed %s %q\n", placed.ID, m.To, m.Subject)
	}
	return nil
}
