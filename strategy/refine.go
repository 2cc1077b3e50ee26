package strategy

import (
	"math"
	"runtime"
	"sync"

	"github.com/jiangshan55555/power-market-system/solver"
)

// 区域过窄时细化网格至少要有的点数，不足则向两侧各扩展1个价格单位
const minRefinePoints = 10

// PointSolver 单点求解入口。生产实现是 solver.Solver；接口化便于替换
// 求解策略与测试。
type PointSolver interface {
	Solve(daPrice float64) solver.Point
}

// Refiner 在门槛区域内以更细的步长重新求解。多层细化由调用方以递减的
// step 反复调用，结果并入同一个累积映射。
type Refiner struct {
	Solver  PointSolver
	Workers int
	// 扩展细化区间时的价格边界
	PriceMin, PriceMax float64
}

// Refine 对每个区域构建 [lo, hi] 步长为 step 的细化网格并逐点求解。
// 只有收敛的点才进入返回值；每次调用返回全新的映射，由调用方合并。
func (r *Refiner) Refine(regions []Region, step float64) map[float64]solver.Point {
	results := make(map[float64]solver.Point)
	for _, region := range regions {
		prices := r.subGrid(region, step)
		for price, pt := range SolveGrid(prices, r.Workers, r.Solver.Solve) {
			if pt.Converged {
				results[price] = pt
			}
		}
	}
	return results
}

func (r *Refiner) subGrid(region Region, step float64) []float64 {
	lo, hi := region.Lo, region.Hi
	if countPoints(lo, hi, step) < minRefinePoints {
		lo = math.Max(lo-1, r.PriceMin)
		hi = math.Min(hi+1, r.PriceMax)
	}
	n := countPoints(lo, hi, step)
	prices := make([]float64, n)
	for i := 0; i < n; i++ {
		prices[i] = lo + float64(i)*step
	}
	return prices
}

func countPoints(lo, hi, step float64) int {
	return int(math.Floor((hi-lo)/step+1e-9)) + 1
}

// SolveGrid 用 worker 池并行求解一批DA价格点。各点只共享只读输入，
// 结果写入以价格为键的映射；完成顺序无关紧要，汇总阶段会重新排序。
func SolveGrid(prices []float64, workers int, solve func(float64) solver.Point) map[float64]solver.Point {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(prices) {
		workers = len(prices)
	}
	if workers == 0 {
		return map[float64]solver.Point{}
	}

	jobs := make(chan float64)
	results := make(map[float64]solver.Point, len(prices))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for price := range jobs {
				pt := solve(price)
				mu.Lock()
				results[price] = pt
				mu.Unlock()
			}
		}()
	}

	for _, p := range prices {
		jobs <- p
	}
	close(jobs)
	wg.Wait()

	return results
}
