package domain

import "math"

// DefaultLotSize is the minimum tradable increment of shares.
const DefaultLotSize = 100

// CashTolerance is the rounding slack allowed when checking that
// cash + totalSpent equals initial capital.
const CashTolerance = 0.01

// priceEpsilon separates "same price tier" from "strictly higher" when
// walking the clearing book. Prices are quoted in quarter steps by bots but
// humans may submit arbitrary floats.
const priceEpsilon = 1e-9

// RoundToQuarter rounds a price to the nearest quarter-unit of currency.
func RoundToQuarter(price float64) float64 {
	return math.Round(price*4) / 4
}

// FloorToLot rounds a share count down to a whole number of lots.
func FloorToLot(shares, lotSize int) int {
	if lotSize <= 0 {
		lotSize = DefaultLotSize
	}
	if shares < 0 {
		return 0
	}
	return shares - shares%lotSize
}

// Clamp limits v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// Lerp interpolates between lo and hi by t in [0,1].
func Lerp(lo, hi, t float64) float64 {
	return lo + (hi-lo)*Clamp(t, 0, 1)
}

func samePrice(a, b float64) bool {
	return math.Abs(a-b) < priceEpsilon
}
