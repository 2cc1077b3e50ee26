package solver

import "time"

// Params 单点求解所需的全部参数，一次运行内只读。
type Params struct {
	// 成本（CNY/MWh）
	CostGen float64 // 发电边际成本 c_g
	CostUp  float64 // 上调整成本 c_up
	CostDn  float64 // 下调整成本 c_dn

	// 容量（MW）
	MaxPower   float64 // P_max
	MaxUpReg   float64 // R_up_max
	MaxDownReg float64 // R_dn_max

	// 神经动力学超参数
	EtaBase       float64
	EtaMin        float64
	MaxIterations int
	Tolerance     float64
	Patience      int
	Momentum      float64
	NoiseFactor   float64
	PointTimeout  time.Duration
}

// Point 单个DA价格下的完整求解结果。由一次 Solve 调用产出，之后不可变；
// 结果集合中以 DAPrice 为键。
type Point struct {
	DAPrice float64

	// 日前申报电量，0 <= PDA <= MaxPower
	PDA float64

	// 每个RT网格价对应的实时出力与调整量。
	// 功率平衡：PRT[i] = PDA + RUp[i] - RDn[i]
	PRT []float64
	RUp []float64
	RDn []float64

	// 期望总收益
	Objective float64

	Converged  bool
	TimedOut   bool
	Iterations int
}
