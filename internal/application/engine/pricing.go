package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/stockbot/internal/domain"
)

// cachedQuote is one time-bounded price memo.
type cachedQuote struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// getPrice resolves the current price for a symbol. Demo mode never
// touches the external provider; live mode serves from the cache inside
// the freshness window, otherwise fetches with exponential backoff.
// A stale cache entry is never served as a fallback: after the final
// failed attempt the caller gets ErrPriceUnavailable.
func (e *Engine) getPrice(ctx context.Context, mode domain.Mode, symbol string) (decimal.Decimal, error) {
	if mode == domain.ModeDemo {
		return e.demoPrice(ctx, symbol)
	}

	e.cacheMu.Lock()
	if q, ok := e.cache[symbol]; ok && e.now().Sub(q.fetchedAt) < e.cfg.CacheDuration {
		e.cacheMu.Unlock()
		return q.price, nil
	}
	e.cacheMu.Unlock()

	var price decimal.Decimal
	var lastErr error
	delay := e.cfg.RetryBaseDelay
	for attempt := 0; attempt < e.cfg.PriceAttempts; attempt++ {
		price, lastErr = e.quotes.Quote(ctx, symbol)
		if lastErr == nil {
			break
		}
		if attempt < e.cfg.PriceAttempts-1 {
			slog.Warn("price fetch failed, retrying",
				"symbol", symbol, "attempt", attempt+1, "wait", delay, "err", lastErr)
			select {
			case <-ctx.Done():
				return decimal.Zero, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	if lastErr != nil {
		return decimal.Zero, fmt.Errorf("engine.getPrice: %s after %d attempts: %v: %w",
			symbol, e.cfg.PriceAttempts, lastErr, domain.ErrPriceUnavailable)
	}

	e.cacheMu.Lock()
	e.cache[symbol] = cachedQuote{price: price, fetchedAt: e.now()}
	e.cacheMu.Unlock()
	return price, nil
}

// demoPrice advances the random walk for a symbol and returns the new
// value. Every read moves the price: a multiplicative step within the
// volatility band applied to the persisted baseline (100.00 for symbols
// never seen before).
func (e *Engine) demoPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	base, ok, err := e.storage.GetDemoPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("engine.demoPrice: %w", err)
	}
	if !ok {
		base = e.cfg.DemoStartPrice
	}

	e.rndMu.Lock()
	factor := 1 + (e.rnd.Float64()*2-1)*e.cfg.DemoVolatility
	e.rndMu.Unlock()

	price := base.Mul(decimal.NewFromFloat(factor)).Round(4)
	if err := e.storage.SaveDemoPrice(ctx, symbol, price); err != nil {
		return decimal.Zero, fmt.Errorf("engine.demoPrice: %w", err)
	}
	return price, nil
}
