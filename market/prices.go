package market

import (
	"errors"
	"time"
)

// ErrMisalignedSeries 日前/实时序列长度不一致。
var ErrMisalignedSeries = errors.New("da/rt price series must have equal length")

// PricePoint 一条历史价格记录：同一时刻的日前价与实时价（CNY/MWh）。
type PricePoint struct {
	Ts time.Time
	DA float64
	RT float64
}

// Sample 按时间升序排列的历史价格样本，只读。
type Sample struct {
	points []PricePoint
}

// NewSample 由对齐的时间戳与价格序列构造样本。
func NewSample(ts []time.Time, da, rt []float64) (Sample, error) {
	if len(da) != len(rt) || len(ts) != len(da) {
		return Sample{}, ErrMisalignedSeries
	}
	points := make([]PricePoint, len(ts))
	for i := range ts {
		points[i] = PricePoint{Ts: ts[i], DA: da[i], RT: rt[i]}
	}
	return Sample{points: points}, nil
}

// Len returns the number of records.
func (s Sample) Len() int { return len(s.points) }

// Points returns a copy of the underlying records.
func (s Sample) Points() []PricePoint {
	out := make([]PricePoint, len(s.points))
	copy(out, s.points)
	return out
}

// Before 返回严格早于 cutoff 的子样本；cutoff 为零值时返回全部。
func (s Sample) Before(cutoff time.Time) Sample {
	if cutoff.IsZero() {
		return s
	}
	var points []PricePoint
	for _, p := range s.points {
		if p.Ts.Before(cutoff) {
			points = append(points, p)
		}
	}
	return Sample{points: points}
}
