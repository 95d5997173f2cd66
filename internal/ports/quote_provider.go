package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// QuoteProvider obtiene el precio de mercado actual de un símbolo.
// Best effort: un solo intento, sin reintentos — la capa de pricing del
// engine se encarga de cache y backoff.
type QuoteProvider interface {
	// Quote devuelve el último precio conocido, siempre positivo.
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}
