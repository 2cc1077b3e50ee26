package market

import (
	"errors"
	"math"
	"time"
)

// ErrInsufficientData 拟合分布的样本不足（过滤后少于2条）。
var ErrInsufficientData = errors.New("insufficient price data to fit distribution")

// 标准差下限，避免零方差分布导致退化的概率质量
const stdEpsilon = 1e-6

// Gaussian 单市场的正态分布参数。
type Gaussian struct {
	Mu    float64
	Sigma float64
}

// Pdf returns the normal density at x.
func (g Gaussian) Pdf(x float64) float64 {
	z := (x - g.Mu) / g.Sigma
	return math.Exp(-0.5*z*z) / (g.Sigma * math.Sqrt(2*math.Pi))
}

// Distribution 日前与实时市场各自独立的价格分布。
type Distribution struct {
	DA Gaussian
	RT Gaussian
}

// FitDistribution 用历史样本拟合两市场的独立正态分布。
// cutoff 非零时仅使用严格早于 cutoff 的记录。
func FitDistribution(sample Sample, cutoff time.Time) (Distribution, error) {
	filtered := sample.Before(cutoff)
	n := filtered.Len()
	if n < 2 {
		return Distribution{}, ErrInsufficientData
	}

	var sumDA, sumRT float64
	points := filtered.points
	for _, p := range points {
		sumDA += p.DA
		sumRT += p.RT
	}
	muDA := sumDA / float64(n)
	muRT := sumRT / float64(n)

	var ssDA, ssRT float64
	for _, p := range points {
		ssDA += (p.DA - muDA) * (p.DA - muDA)
		ssRT += (p.RT - muRT) * (p.RT - muRT)
	}
	// 样本标准差（n-1），与历史数据分析管线保持一致
	sigmaDA := math.Sqrt(ssDA / float64(n-1))
	sigmaRT := math.Sqrt(ssRT / float64(n-1))

	return Distribution{
		DA: Gaussian{Mu: muDA, Sigma: math.Max(sigmaDA, stdEpsilon)},
		RT: Gaussian{Mu: muRT, Sigma: math.Max(sigmaRT, stdEpsilon)},
	}, nil
}
