package market

import (
	"errors"
	"math"
)

// ErrInvalidRange 价格网格边界或步长无效。
var ErrInvalidRange = errors.New("invalid price grid range")

// Grid 固定步长的价格支撑点序列，升序、只读，供所有单点求解共享。
type Grid struct {
	prices []float64
	step   float64
}

// NewGrid builds the inclusive price support [min, max] at the given step.
func NewGrid(min, max, step float64) (Grid, error) {
	if max <= min {
		return Grid{}, ErrInvalidRange
	}
	if step <= 0 {
		return Grid{}, ErrInvalidRange
	}
	n := int(math.Floor((max-min)/step+1e-9)) + 1
	prices := make([]float64, n)
	for i := 0; i < n; i++ {
		prices[i] = min + float64(i)*step
	}
	return Grid{prices: prices, step: step}, nil
}

// Prices returns the underlying support. Callers must not mutate it.
func (g Grid) Prices() []float64 { return g.prices }

// Step returns the grid spacing.
func (g Grid) Step() float64 { return g.step }

// Len returns the number of support points.
func (g Grid) Len() int { return len(g.prices) }

// Min returns the first support price.
func (g Grid) Min() float64 {
	if len(g.prices) == 0 {
		return 0
	}
	return g.prices[0]
}

// Max returns the last support price.
func (g Grid) Max() float64 {
	if len(g.prices) == 0 {
		return 0
	}
	return g.prices[len(g.prices)-1]
}
