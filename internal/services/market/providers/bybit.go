package providers

import (
	"context"
	"fmt"
	"sort"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/zonescan/internal/domain"
)

// bybitKlineClient is the slice of the Bybit SDK the provider calls.
type bybitKlineClient interface {
	GetKline(param bybit.V5GetKlineParam) (*bybit.V5GetKlineResponse, error)
}

// BybitBarProvider implements BarProvider for the Bybit exchange.
type BybitBarProvider struct {
	kline bybitKlineClient
}

// NewBybitBarProvider creates a new Bybit bar provider.
func NewBybitBarProvider(client *bybit.Client) *BybitBarProvider {
	return &BybitBarProvider{kline: client.V5().Market()}
}

// GetBars fetches kline data from Bybit and converts it to bars in
// strictly ascending timestamp order. Bybit serves at most 200 klines per
// request, newest first, so the provider pages backward with an End cursor
// anchored just before the oldest kline already received.
func (p *BybitBarProvider) GetBars(ctx context.Context, symbol, interval string, limit int) ([]domain.Bar, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	bybitInterval, err := convertIntervalToBybit(interval)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid interval: %s", interval)
	}

	const maxPerRequest = 200

	var allKlines []bybit.V5GetKlineItem
	remaining := limit
	var pageEnd *int64

	for remaining > 0 {
		batchSize := remaining
		if batchSize > maxPerRequest {
			batchSize = maxPerRequest
		}

		param := bybit.V5GetKlineParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   bybit.SymbolV5(symbol),
			Interval: bybit.Interval(bybitInterval),
			Limit:    &batchSize,
			End:      pageEnd,
		}

		result, err := p.kline.GetKline(param)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", symbol)
		}
		if result == nil {
			return nil, errors.Errorf("empty result from Bybit API for %s", symbol)
		}

		klines := result.Result.List
		if len(klines) == 0 {
			if len(allKlines) == 0 {
				return nil, errors.Errorf("no kline data returned from Bybit for %s", symbol)
			}
			break
		}

		allKlines = append(allKlines, klines...)
		remaining -= len(klines)

		if len(klines) < batchSize {
			break
		}

		// klines arrive newest first, so the last item is the oldest;
		// the next page must end just before it
		oldest, err := parseTimestamp(klines[len(klines)-1].StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse start time of oldest kline for %s", symbol)
		}
		next := oldest.UnixMilli() - 1
		pageEnd = &next

		// avoid rate limiting by small delay between requests
		if remaining > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
	}

	bars := make([]domain.Bar, len(allKlines))
	for i, k := range allKlines {
		ts, err := parseTimestamp(k.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse start time at index %d", i)
		}
		open, err := decimal.NewFromString(k.Open)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse open price at index %d", i)
		}
		high, err := decimal.NewFromString(k.High)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse high price at index %d", i)
		}
		low, err := decimal.NewFromString(k.Low)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse low price at index %d", i)
		}
		closePrice, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse close price at index %d", i)
		}
		volume, err := decimal.NewFromString(k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse volume at index %d", i)
		}

		bars[i] = domain.Bar{
			Timestamp: ts,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		}
	}

	// Bybit returns newest first; the engine needs strictly ascending
	// order, so sort and drop any timestamp served by more than one page
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	out := bars[:0]
	for _, b := range bars {
		if len(out) > 0 && !b.Timestamp.After(out[len(out)-1].Timestamp) {
			continue
		}
		out = append(out, b)
	}

	return out, nil
}

// convertIntervalToBybit converts standard interval format to Bybit format.
// Standard format: "1m", "5m", "15m", "1h", "4h", "1d", etc.
// Bybit format: "1", "5", "15", "60", "240", "D", etc.
func convertIntervalToBybit(interval string) (string, error) {
	if len(interval) < 2 {
		return "", fmt.Errorf("invalid interval format: %s", interval)
	}

	unit := interval[len(interval)-1]
	numberPart := interval[:len(interval)-1]

	switch unit {
	case 'm':
		return numberPart, nil
	case 'h':
		var n int64
		for _, r := range numberPart {
			if r < '0' || r > '9' {
				return "", fmt.Errorf("invalid interval number: %s", interval)
			}
			n = n*10 + int64(r-'0')
		}
		return fmt.Sprintf("%d", n*60), nil
	case 'd':
		return "D", nil
	case 'w':
		return "W", nil
	default:
		return "", fmt.Errorf("unsupported interval unit: %c", unit)
	}
}

// parseTimestamp converts a Bybit timestamp string (milliseconds) to time.Time.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	var msec int64
	if _, err := fmt.Sscanf(ts, "%d", &msec); err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}

	return time.UnixMilli(msec), nil
}
