package checkout_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pricing-pipeline/internal/checkout"
	"github.com/noah-isme/pricing-pipeline/internal/pricing"
)

type quoteResponse struct {
	Data checkout.Quote `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func postQuote(t *testing.T, h *checkout.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Quote(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(body)))
	return rr
}

func TestQuoteHandlerPricesCart(t *testing.T) {
	svc, _ := newService(t, true, pricing.NewYearDiscount(), pricing.NewLoyaltyDiscount())
	h := checkout.NewHandler(svc)

	rr := postQuote(t, h, `{"items":[{"name":"Item","price":"100","qty":1}],"customer":{"email":"a@b.com","gold":true}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, pricing.MustParseMoney("85.5").Equal(resp.Data.Total), "got %s", resp.Data.Total)
	require.True(t, pricing.NewMoney(100).Equal(resp.Data.Base))
	require.Len(t, resp.Data.Steps, 2)
	require.Equal(t, "new-year", resp.Data.Steps[0].Rule)
}

func TestQuoteHandlerExplicitBaseWithoutCart(t *testing.T) {
	svc, _ := newService(t, true, pricing.OEMCampaign(true), pricing.GSTRule())
	rr := postQuote(t, checkout.NewHandler(svc), `{"base":1000}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, pricing.NewMoney(1062).Equal(resp.Data.Total))
}

func TestQuoteHandlerRejectsBadInput(t *testing.T) {
	svc, _ := newService(t, true, pricing.GSTRule())
	h := checkout.NewHandler(svc)

	cases := map[string]string{
		"malformed":        `{`,
		"missing base":     `{}`,
		"negative base":    `{"base":"-5"}`,
		"negative price":   `{"items":[{"name":"x","price":"-1","qty":1}],"customer":{"email":"a@b.com"}}`,
		"zero qty":         `{"items":[{"name":"x","price":"1","qty":0}],"customer":{"email":"a@b.com"}}`,
		"missing customer": `{"items":[{"name":"x","price":"1","qty":1}]}`,
		"bad email":        `{"base":"1","customer":{"email":"nope"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := postQuote(t, h, body)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			require.Equal(t, "BAD_REQUEST", resp.Error.Code)
		})
	}
}

func TestQuoteHandlerRuleFailure(t *testing.T) {
	failing := pricing.RuleFunc(func(pricing.Money, *pricing.Cart) (pricing.Money, error) {
		return pricing.Zero, errors.New("boom")
	})
	svc, _ := newService(t, true, failing)
	rr := postQuote(t, checkout.NewHandler(svc), `{"base":"10"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "RULE_FAILED", resp.Error.Code)
}

func TestRulesHandler(t *testing.T) {
	svc, _ := newService(t, false, pricing.OEMCampaign(true), pricing.GSTRule())
	rr := httptest.NewRecorder()
	checkout.NewHandler(svc).Rules(rr, httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"data":{"discountsEnabled":false,"rules":["oem-campaign","gst"]}}`, rr.Body.String())
}
