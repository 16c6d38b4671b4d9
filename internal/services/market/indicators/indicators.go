// Package indicators computes technical context (RSI, ATR) around zone
// formation. The values are informational only: the detection pipeline
// never reads them, so detection determinism is unaffected.
package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/zonescan/internal/domain"
)

// CalculateRSI calculates the Relative Strength Index for the given period.
func CalculateRSI(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period+1 {
		return nil, fmt.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(closes))
	}

	closesFloat := decimalsToFloat64(closes)

	rsi := momentum.NewRsiWithPeriod[float64](period)
	inputChan := helper.SliceToChan(closesFloat)
	outputChan := rsi.Compute(inputChan)
	rsiFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(rsiFloat), nil
}

// CalculateATR calculates the Average True Range for the given period.
func CalculateATR(bars []domain.Bar, period int) ([]decimal.Decimal, error) {
	if len(bars) < period+1 {
		return nil, fmt.Errorf("not enough data points for ATR: need %d, got %d", period+1, len(bars))
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High.InexactFloat64()
		lows[i] = b.Low.InexactFloat64()
		closes[i] = b.Close.InexactFloat64()
	}

	atr := volatility.NewAtrWithPeriod[float64](period)
	highChan := helper.SliceToChan(highs)
	lowChan := helper.SliceToChan(lows)
	closeChan := helper.SliceToChan(closes)
	outputChan := atr.Compute(highChan, lowChan, closeChan)
	atrFloat := helper.ChanToSlice(outputChan)

	return float64ToDecimals(atrFloat), nil
}

// FormationContext holds the indicator snapshot taken when a zone forms.
type FormationContext struct {
	RSI decimal.Decimal
	ATR decimal.Decimal
}

// AtFormation computes RSI and ATR over the bars leading up to and
// including the formation index.
func AtFormation(bars []domain.Bar, index, period int) (FormationContext, error) {
	if index < 0 || index >= len(bars) {
		return FormationContext{}, fmt.Errorf("formation index %d out of range", index)
	}

	window := bars[:index+1]
	closes := make([]decimal.Decimal, len(window))
	for i, b := range window {
		closes[i] = b.Close
	}

	rsi, err := CalculateRSI(closes, period)
	if err != nil {
		return FormationContext{}, err
	}
	atr, err := CalculateATR(window, period)
	if err != nil {
		return FormationContext{}, err
	}
	if len(rsi) == 0 || len(atr) == 0 {
		return FormationContext{}, fmt.Errorf("indicator window too short at index %d", index)
	}

	return FormationContext{
		RSI: rsi[len(rsi)-1],
		ATR: atr[len(atr)-1],
	}, nil
}

func decimalsToFloat64(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.InexactFloat64()
	}
	return out
}

func float64ToDecimals(values []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}
