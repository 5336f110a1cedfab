// internal/core/domain/features/atr.go
package features

import (
	"math"

	"crypto-market-advisor/internal/types/market"
)

// DefaultATRPeriod - стандартный период ATR
const DefaultATRPeriod = 14

// ATRThreshold - абсолютный порог ATR для определения режима волатильности.
// Порог не нормирован на цену инструмента, поэтому для дорогих и дешёвых
// инструментов режим классифицируется по-разному (известное ограничение).
const ATRThreshold = 0.01

// Режимы волатильности
const (
	RegimeQuiet     = "quiet"
	RegimeExpansion = "expansion"
)

// ATR рассчитывает Average True Range методом скользящей Уайлдера (RMA).
// Истинный диапазон бара = max(high-low, |high-prevClose|, |low-prevClose|).
// Затравка - простое среднее первых period значений, далее рекурсивное
// сглаживание rma = rma*(1-1/period) + tr*(1/period).
// Возвращает 0.0, если свечей меньше двух.
func ATR(candles []market.Candle, period int) float64 {
	if len(candles) < 2 {
		return 0.0
	}

	trs := make([]float64, 0, len(candles)-1)
	prevClose := candles[0].Close.InexactFloat64()

	for _, c := range candles[1:] {
		high := c.High.InexactFloat64()
		low := c.Low.InexactFloat64()
		close := c.Close.InexactFloat64()

		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		trs = append(trs, tr)
		prevClose = close
	}

	if period > len(trs) {
		period = len(trs)
	}
	if period < 1 {
		period = 1
	}

	var sum float64
	for _, tr := range trs[:period] {
		sum += tr
	}
	rma := sum / float64(period)

	alpha := 1.0 / float64(period)
	for _, tr := range trs[period:] {
		rma = rma*(1-alpha) + tr*alpha
	}

	return rma
}

// VolatilityRegime классифицирует режим волатильности по ATR
func VolatilityRegime(candles []market.Candle) string {
	if ATR(candles, DefaultATRPeriod) < ATRThreshold {
		return RegimeQuiet
	}
	return RegimeExpansion
}

// RealizedVol рассчитывает реализованную волатильность: популяционное
// стандартное отклонение логарифмических доходностей, умноженное на
// корень из количества баров таймфрейма в сутках.
// Возвращает 0.0, если доходностей меньше двух.
func RealizedVol(candles []market.Candle, tf market.Timeframe) float64 {
	if len(candles) < 3 {
		return 0.0
	}

	returns := make([]float64, 0, len(candles)-1)
	prevClose := candles[0].Close.InexactFloat64()

	for _, c := range candles[1:] {
		close := c.Close.InexactFloat64()
		if prevClose > 0 && close > 0 {
			returns = append(returns, math.Log(close/prevClose))
		}
		prevClose = close
	}

	if len(returns) < 2 {
		return 0.0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(tf.PeriodsPerDay())
}

// SMA - простое скользящее среднее последних n цен закрытия
func SMA(candles []market.Candle, n int) float64 {
	if len(candles) == 0 || n < 1 {
		return 0.0
	}

	if n > len(candles) {
		n = len(candles)
	}

	var sum float64
	for _, c := range candles[len(candles)-n:] {
		sum += c.Close.InexactFloat64()
	}

	return sum / float64(n)
}

// RollingVolume - суммарный базовый объём последних n свечей
func RollingVolume(candles []market.Candle, n int) float64 {
	if len(candles) == 0 || n < 1 {
		return 0.0
	}

	if n > len(candles) {
		n = len(candles)
	}

	var sum float64
	for _, c := range candles[len(candles)-n:] {
		sum += c.VolumeBase.InexactFloat64()
	}

	return sum
}
