// REST API CLIENT FOR FYERS EQUITY TRADING
// RESTY ONLY + INTERNAL RETRY
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

// -----------------------------
// CONFIG
// -----------------------------
const (
	// Default retry configuration. Retries use a fixed delay; upstream
	// rate limits make exponential growth unnecessary at this cadence.
	defaultRetryAttempts = 3
	defaultRetryDelay    = 2 * time.Second
	defaultTimeout       = 10 * time.Second
)

// -----------------------------
// API RESPONSE WRAPPERS
// -----------------------------
type apiEnvelope struct {
	S       string `json:"s"`
	Message string `json:"message"`
}

type quotesResponse struct {
	S string `json:"s"`
	D []struct {
		N string `json:"n"`
		S string `json:"s"`
		V struct {
			LP float64 `json:"lp"`
		} `json:"v"`
	} `json:"d"`
}

type placeOrderResponse struct {
	S       string `json:"s"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// OrderbookEntry is one row of the venue orderbook feed.
type OrderbookEntry struct {
	ID          string  `json:"id"`
	Status      int     `json:"status"`
	TradedPrice float64 `json:"tradedPrice"`
}

type orderbookResponse struct {
	S         string           `json:"s"`
	OrderBook []OrderbookEntry `json:"orderBook"`
}

type fundsResponse struct {
	S         string `json:"s"`
	FundLimit []struct {
		Title        string  `json:"title"`
		EquityAmount float64 `json:"equityAmount"`
	} `json:"fund_limit"`
}

// OrderRequest is the bracket order payload submitted to the venue.
// StopLoss and TakeProfit are absolute offsets from LimitPrice.
type OrderRequest struct {
	Symbol       string  `json:"symbol"`
	Qty          int64   `json:"qty"`
	Type         int     `json:"type"`
	Side         int     `json:"side"`
	ProductType  string  `json:"productType"`
	LimitPrice   float64 `json:"limitPrice"`
	StopPrice    float64 `json:"stopPrice"`
	Validity     string  `json:"validity"`
	StopLoss     float64 `json:"stopLoss"`
	TakeProfit   float64 `json:"takeProfit"`
	DisclosedQty int     `json:"disclosedQty"`
	OfflineOrder bool    `json:"offlineOrder"`
	OrderTag     string  `json:"orderTag,omitempty"`
}

// Limit buy order constants used for bracket entries.
const (
	OrderTypeLimit      = 2
	OrderSideBuy        = 1
	ProductTypeBracket  = "BO"
	OrderValidityDay    = "DAY"
	exchangeSegmentTmpl = "NSE:%s-EQ"
)

// -----------------------------
// AUTHENTICATED CLIENT
// -----------------------------

// FyersClient is an authenticated REST client for the broker API.
// Authentication is a bearer-style "clientID:accessToken" header; the
// token itself is acquired out-of-band.
type FyersClient struct {
	clientID    string
	accessToken string
	baseURL     string
	http        *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

func NewFyersClient(clientID, accessToken, baseURL string) *FyersClient {
	if baseURL == "" {
		baseURL = "https://api.fyers.in"
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryDelay).
		SetRetryMaxWaitTime(defaultRetryDelay).
		AddRetryCondition(isRetryableResp).
		SetHeader("Authorization", fmt.Sprintf("%s:%s", clientID, accessToken))

	return &FyersClient{
		clientID:    clientID,
		accessToken: accessToken,
		baseURL:     baseURL,
		http:        httpClient,
	}
}

// VenueSymbol maps a plain symbol to the venue's exchange-segment form.
func VenueSymbol(symbol string) string {
	return fmt.Sprintf(exchangeSegmentTmpl, symbol)
}

// plainSymbol reverses VenueSymbol: "NSE:TCS-EQ" -> "TCS".
func plainSymbol(venueSymbol string) string {
	parts := strings.Split(venueSymbol, ":")
	last := parts[len(parts)-1]
	return strings.SplitN(last, "-", 2)[0]
}

// -----------------------------
// MARKET DATA
// -----------------------------

// Quotes fetches last traded prices for a set of symbols in one batched
// call. The result is a partial mapping: symbols whose quote is missing
// or malformed are absent, not an overall failure.
func (c *FyersClient) Quotes(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return nil, newAPIError(ErrKindMalformed, "Quotes", fmt.Errorf("empty symbol set"))
	}

	venueSymbols := make([]string, len(symbols))
	for i, s := range symbols {
		venueSymbols[i] = VenueSymbol(s)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbols", strings.Join(venueSymbols, ",")).
		Get("/data-rest/v2/quotes/")
	if err != nil {
		return nil, newAPIError(ErrKindTransient, "Quotes", err)
	}

	if resp.StatusCode() != 200 {
		return nil, newAPIError(ErrKindTransient, "Quotes",
			fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(resp.Body())))
	}

	var parsed quotesResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, newAPIError(ErrKindMalformed, "Quotes", err)
	}
	if parsed.S != "ok" {
		return nil, newAPIError(ErrKindMalformed, "Quotes",
			fmt.Errorf("market data fetch failed: s=%s", parsed.S))
	}

	prices := make(map[string]float64, len(parsed.D))
	for _, item := range parsed.D {
		symbol := plainSymbol(item.N)
		if item.V.LP <= 0 {
			logger.WithFields(map[string]interface{}{
				"symbol": symbol,
				"lp":     item.V.LP,
			}).Warn("Quote missing last price, skipping symbol")
			continue
		}
		prices[symbol] = item.V.LP
	}

	return prices, nil
}

// -----------------------------
// TRADING
// -----------------------------

// PlaceOrder submits a bracket order and returns the venue order id.
// A venue rejection comes back as a terminal APIError and must not be
// resubmitted.
func (c *FyersClient) PlaceOrder(ctx context.Context, order OrderRequest) (string, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return "", newAPIError(ErrKindMalformed, "PlaceOrder", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/api/v2/orders")
	if err != nil {
		return "", newAPIError(ErrKindTransient, "PlaceOrder", err)
	}

	if resp.StatusCode() != 200 {
		kind := ErrKindTerminal
		if isRetryableResp(resp, nil) {
			kind = ErrKindTransient
		}
		return "", newAPIError(kind, "PlaceOrder",
			fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(resp.Body())))
	}

	var parsed placeOrderResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", newAPIError(ErrKindMalformed, "PlaceOrder", err)
	}

	if parsed.S != "ok" || parsed.ID == "" {
		return "", newAPIError(ErrKindTerminal, "PlaceOrder",
			fmt.Errorf("order rejected: %s", parsed.Message))
	}

	return parsed.ID, nil
}

// Orderbook returns the current orderbook rows for the account.
func (c *FyersClient) Orderbook(ctx context.Context) ([]OrderbookEntry, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/api/v2/orders")
	if err != nil {
		return nil, newAPIError(ErrKindTransient, "Orderbook", err)
	}

	if resp.StatusCode() != 200 {
		return nil, newAPIError(ErrKindTransient, "Orderbook",
			fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(resp.Body())))
	}

	var parsed orderbookResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, newAPIError(ErrKindMalformed, "Orderbook", err)
	}
	if parsed.S != "ok" {
		return nil, newAPIError(ErrKindMalformed, "Orderbook",
			fmt.Errorf("orderbook fetch failed: s=%s", parsed.S))
	}

	return parsed.OrderBook, nil
}

// -----------------------------
// FUNDS
// -----------------------------

const fundsAvailableTitle = "Available Balance"

// Funds returns the available equity reported by the broker.
func (c *FyersClient) Funds(ctx context.Context) (float64, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/api/v2/funds")
	if err != nil {
		return 0, newAPIError(ErrKindTransient, "Funds", err)
	}

	if resp.StatusCode() != 200 {
		return 0, newAPIError(ErrKindTransient, "Funds",
			fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(resp.Body())))
	}

	var parsed fundsResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return 0, newAPIError(ErrKindMalformed, "Funds", err)
	}
	if parsed.S != "ok" {
		return 0, newAPIError(ErrKindMalformed, "Funds",
			fmt.Errorf("funds fetch failed: s=%s", parsed.S))
	}

	for _, limit := range parsed.FundLimit {
		if limit.Title == fundsAvailableTitle {
			return limit.EquityAmount, nil
		}
	}

	return 0, newAPIError(ErrKindMalformed, "Funds",
		fmt.Errorf("no %q entry in funds response", fundsAvailableTitle))
}
