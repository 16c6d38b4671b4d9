package providers

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/zonescan/internal/domain"
)

// BinanceBarProvider implements BarProvider for the Binance exchange.
type BinanceBarProvider struct {
	client *binance.Client
}

// NewBinanceBarProvider creates a new Binance bar provider.
func NewBinanceBarProvider(client *binance.Client) *BinanceBarProvider {
	return &BinanceBarProvider{client: client}
}

// GetBars fetches kline data from Binance and converts it to bars.
func (p *BinanceBarProvider) GetBars(ctx context.Context, symbol, interval string, limit int) ([]domain.Bar, error) {
	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", symbol)
	}

	bars := make([]domain.Bar, len(klines))
	for i, k := range klines {
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
			Timestamp: time.Unix(0, k.OpenTime*int64(time.Millisecond)),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		}
	}

	return bars, nil
}
