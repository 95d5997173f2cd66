package quotes_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/stockbot/internal/adapters/quotes"
	"github.com/alejandrodnm/stockbot/internal/domain"
)

func TestQuote_ParsesRegularMarketPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v7/finance/quote", r.URL.Path)
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbols"))
		fmt.Fprint(w, `{"quoteResponse":{"result":[{"symbol":"AAPL","regularMarketPrice":187.44}]}}`)
	}))
	defer srv.Close()

	c := quotes.NewClient(srv.URL)
	price, err := c.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("187.44")), "price = %s", price)
}

func TestQuote_ServerErrorIsPriceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := quotes.NewClient(srv.URL)
	_, err := c.Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

func TestQuote_EmptyResultIsPriceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"quoteResponse":{"result":[]}}`)
	}))
	defer srv.Close()

	c := quotes.NewClient(srv.URL)
	_, err := c.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

func TestQuote_NonPositivePriceIsPriceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"quoteResponse":{"result":[{"symbol":"HALT","regularMarketPrice":0}]}}`)
	}))
	defer srv.Close()

	c := quotes.NewClient(srv.URL)
	_, err := c.Quote(context.Background(), "HALT")
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}
