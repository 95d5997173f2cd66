package engine

import (
	"fmt"
	"time"
)

const (
	marketTimezone   = "America/New_York"
	openMinuteOfDay  = 9*60 + 30  // 9:30 inclusive
	closeMinuteOfDay = 16 * 60    // 16:00 exclusive
)

// MarketCalendar answers whether the exchange is open at a given instant.
// It converts through the IANA tz database, so the DST switch (second
// Sunday of March, first Sunday of November) is handled for free.
type MarketCalendar struct {
	loc *time.Location
}

// NewMarketCalendar loads the exchange timezone.
func NewMarketCalendar() (*MarketCalendar, error) {
	loc, err := time.LoadLocation(marketTimezone)
	if err != nil {
		return nil, fmt.Errorf("engine.NewMarketCalendar: load %s: %w", marketTimezone, err)
	}
	return &MarketCalendar{loc: loc}, nil
}

// IsOpen reports whether the market is open at t: weekdays 9:30–16:00
// Eastern. Pure function of the wall clock; exchange holidays are not
// modeled.
func (c *MarketCalendar) IsOpen(t time.Time) bool {
	et := t.In(c.loc)

	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minute := et.Hour()*60 + et.Minute()
	return minute >= openMinuteOfDay && minute < closeMinuteOfDay
}
