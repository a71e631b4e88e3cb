package finance

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultCeiling is the read ceiling, in calls per minute, used when the
	// API has not advertised one.
	DefaultCeiling = 95
	// DefaultPeriod is the moving average age, in minutes, of the source's gate.
	DefaultPeriod = 6
	// DefaultEndpoint is the base of the Yahoo Finance CSV download API.
	// The ticker is appended as the last path element.
	DefaultEndpoint = "https://query1.finance.yahoo.com/v7/finance/download"

	// GateName labels the source's gate in logs and metrics.
	GateName   = "finance"
	dateLayout = "2006-01-02"
)

var ErrInvalidQuery = errors.New("invalid history query")

// Interval is the width of one candle.
type Interval string

const (
	Daily   Interval = "1d"
	Weekly  Interval = "1wk"
	Monthly Interval = "1mo"
)

// ParseInterval accepts "1d", "1wk" or "1mo".
func ParseInterval(s string) (Interval, error) {
	switch i := Interval(s); i {
	case Daily, Weekly, Monthly:
		return i, nil
	default:
		return "", fmt.Errorf("interval %q: %w", s, ErrInvalidQuery)
	}
}

// Candle is one row of a price history.
type Candle struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjClose"`
	Volume   int64     `json:"volume"`
}

// History is the price history of one ticker, oldest candle first.
type History struct {
	Ticker   string   `json:"ticker"`
	Interval Interval `json:"interval"`
	Candles  []Candle `json:"candles"`
	// Skipped counts rows the source reported with null values.
	Skipped int `json:"skipped"`
}

// columns names the CSV header fields, in Candle order.
var columns = [...]string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}
