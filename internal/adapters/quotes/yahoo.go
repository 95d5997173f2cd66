package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/stockbot/internal/domain"
)

const (
	defaultBase = "https://query1.finance.yahoo.com"

	// Yahoo no documenta límites; ~2 req/s con burst corto es seguro
	// para un bot de una sola cuenta.
	quoteRatePerSec = 2
)

// Client es el proveedor de precios en vivo contra el endpoint de quotes
// de Yahoo Finance. Un solo intento por llamada: el cache y los reintentos
// con backoff viven en el engine, no aquí.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
}

// NewClient crea un Client contra el base URL dado (vacío = producción).
func NewClient(base string) *Client {
	if base == "" {
		base = defaultBase
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    base,
		limiter: rate.NewLimiter(quoteRatePerSec, 4),
	}
}

// quoteResponse es el subset del schema de Yahoo que nos interesa.
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// Quote devuelve el último precio de mercado del símbolo.
// Falla con domain.ErrPriceUnavailable envuelto si el proveedor no
// responde o no trae un precio positivo.
func (c *Client) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("quotes.Quote: rate limiter: %w", err)
	}

	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", c.base, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("quotes.Quote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "stockbot/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("quotes.Quote: %s: %v: %w", symbol, err, domain.ErrPriceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return decimal.Zero, fmt.Errorf("quotes.Quote: %s: status %d: %w",
			symbol, resp.StatusCode, domain.ErrPriceUnavailable)
	}

	var qr quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return decimal.Zero, fmt.Errorf("quotes.Quote: %s: decode: %v: %w", symbol, err, domain.ErrPriceUnavailable)
	}

	if len(qr.QuoteResponse.Result) == 0 || qr.QuoteResponse.Result[0].RegularMarketPrice <= 0 {
		return decimal.Zero, fmt.Errorf("quotes.Quote: %s: no price in response: %w",
			symbol, domain.ErrPriceUnavailable)
	}

	return decimal.NewFromFloat(qr.QuoteResponse.Result[0].RegularMarketPrice), nil
}
