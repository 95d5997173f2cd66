package notify

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/stockbot/internal/domain"
)

// Console imprime el estado del portfolio en stdout.
type Console struct {
	out io.Writer
}

// NewConsole crea un dashboard que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un dashboard para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// StatusInput es todo lo que se muestra en un ciclo.
type StatusInput struct {
	Mode       domain.Mode
	Balance    decimal.Decimal
	PnL        decimal.Decimal
	HasPnL     bool // false si no se pudo calcular (precio no disponible)
	MarketOpen bool
	Positions  []domain.Position
	Prices     map[string]decimal.Decimal // precio actual por símbolo, puede faltar
	Pending    []domain.PendingOrder
}

// PrintStatus imprime balance, posiciones y órdenes pendientes.
func (c *Console) PrintStatus(st StatusInput) {
	now := time.Now().Format("15:04:05")
	market := "closed"
	if st.MarketOpen {
		market = "open"
	}

	fmt.Fprintf(c.out, "\n[%s] mode:%s balance:$%s market:%s",
		now, st.Mode, st.Balance.StringFixed(2), market)
	if st.HasPnL {
		fmt.Fprintf(c.out, " pnl:$%s", st.PnL.StringFixed(2))
	}
	fmt.Fprintln(c.out)

	if len(st.Positions) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("Symbol", "Qty", "Avg Cost", "Price", "Value", "PnL")
		for _, pos := range st.Positions {
			priceLabel, valueLabel, pnlLabel := "-", "-", "-"
			if price, ok := st.Prices[pos.Symbol]; ok {
				priceLabel = "$" + price.StringFixed(2)
				valueLabel = "$" + pos.MarketValue(price).StringFixed(2)
				pnlLabel = "$" + pos.UnrealizedPnL(price).StringFixed(2)
			}
			table.Append(
				pos.Symbol,
				fmt.Sprintf("%d", pos.Quantity),
				"$"+pos.AvgCost.StringFixed(2),
				priceLabel,
				valueLabel,
				pnlLabel,
			)
		}
		table.Render()
	}

	if len(st.Pending) > 0 {
		fmt.Fprintf(c.out, "pending orders: %d\n", len(st.Pending))
		table := tablewriter.NewWriter(c.out)
		table.Header("ID", "Side", "Symbol", "Qty", "Limit", "Since")
		for _, o := range st.Pending {
			table.Append(
				shortID(o.ID),
				string(o.Side),
				o.Symbol,
				fmt.Sprintf("%d", o.Quantity),
				"$"+o.LimitPrice.StringFixed(2),
				o.CreatedAt.Format("01-02 15:04"),
			)
		}
		table.Render()
	}
}

// PrintHistory imprime los últimos fills, el más reciente primero.
func (c *Console) PrintHistory(records []domain.OrderRecord) {
	if len(records) == 0 {
		fmt.Fprintln(c.out, "no fills recorded")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Side", "Symbol", "Qty", "Price", "Kind", "Mode")
	for _, r := range records {
		table.Append(
			r.ExecutedAt.Format("2006-01-02 15:04"),
			string(r.Side),
			r.Symbol,
			fmt.Sprintf("%d", r.Quantity),
			"$"+r.Price.StringFixed(2),
			string(r.Kind),
			string(r.Mode),
		)
	}
	table.Render()
}

// shortID corta un UUID a su primer bloque, suficiente en consola.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
