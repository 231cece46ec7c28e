package thermal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Levenberg–Marquardt tuning. The damping is scaled by the diagonal of JᵀJ so
// parameters of very different magnitude (T_max in degrees, k in 1/s) move
// together.
const (
	lmInitialDamping = 1e-3
	lmMinDamping     = 1e-15
	lmMaxDamping     = 1e16
	lmDampingFactor  = 10.0
	lmDiagFloor      = 1e-12
	lmFTol           = 1e-10
	lmXTol           = 1e-10
	lmGTol           = 1e-8
)

// residualFunc fills r with model-minus-observation residuals at x and jac
// with their partial derivatives.
type residualFunc func(x, r []float64, jac *mat.Dense)

type boundedProblem struct {
	residuals    residualFunc
	observations int
	lower, upper []float64
}

type solution struct {
	x          []float64
	cost       float64
	iterations int
}

// solveBounded minimizes the sum of squared residuals inside [lower, upper]
// with a projected Levenberg–Marquardt iteration. A parameter held on a bound
// by its gradient is frozen for that iteration and the step is solved over
// the free parameters only.
func solveBounded(p boundedProblem, x0 []float64, maxIter int) (solution, error) {
	n, m := len(x0), p.observations
	x := make([]float64, n)
	copy(x, x0)
	p.clamp(x)

	r := make([]float64, m)
	jac := mat.NewDense(m, n, nil)
	p.residuals(x, r, jac)
	cost := halfSumSquares(r)
	if !isFinite(cost) {
		return solution{}, fmt.Errorf("%w: residuals not finite at initial guess", ErrFitDivergence)
	}

	candidate := make([]float64, n)
	candR := make([]float64, m)
	candJac := mat.NewDense(m, n, nil)
	damping := lmInitialDamping

	for it := 1; it <= maxIter; it++ {
		var jtj mat.SymDense
		jtj.SymOuterK(1, jac.T())
		var grad mat.VecDense
		grad.MulVec(jac.T(), mat.NewVecDense(m, r))

		if p.projectedGradient(x, &grad) <= lmGTol {
			return solution{x: x, cost: cost, iterations: it}, nil
		}
		free := p.free(x, &grad)

		diagMax := 0.0
		for i := 0; i < n; i++ {
			if free[i] {
				diagMax = math.Max(diagMax, jtj.At(i, i))
			}
		}
		floor := lmDiagFloor * diagMax
		if floor == 0 {
			floor = 1
		}

		rhs := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			if free[i] {
				rhs.SetVec(i, grad.AtVec(i))
			}
		}

		for {
			a := mat.NewSymDense(n, nil)
			a.CopySym(&jtj)
			for i := 0; i < n; i++ {
				if free[i] {
					d := jtj.At(i, i)
					a.SetSym(i, i, d+damping*math.Max(d, floor))
					continue
				}
				for j := 0; j < n; j++ {
					a.SetSym(i, j, 0)
				}
				a.SetSym(i, i, 1)
			}

			var step mat.VecDense
			var chol mat.Cholesky
			solved := chol.Factorize(a) && chol.SolveVecTo(&step, rhs) == nil

			small := false
			if solved {
				for i := 0; i < n; i++ {
					candidate[i] = x[i] - step.AtVec(i)
				}
				p.clamp(candidate)
				small = stepIsSmall(x, candidate)

				p.residuals(candidate, candR, candJac)
				candCost := halfSumSquares(candR)
				if isFinite(candCost) && candCost < cost {
					done := cost-candCost <= lmFTol*cost || small || candCost == 0
					x, candidate = candidate, x
					r, candR = candR, r
					jac, candJac = candJac, jac
					cost = candCost
					damping = math.Max(damping/lmDampingFactor, lmMinDamping)
					if done {
						return solution{x: x, cost: cost, iterations: it}, nil
					}
					break
				}
			}

			damping *= lmDampingFactor
			// no step, however short, lowers the cost: x is a minimum
			if small || damping > lmMaxDamping {
				return solution{x: x, cost: cost, iterations: it}, nil
			}
		}
	}
	return solution{}, fmt.Errorf("%w: no convergence after %d iterations", ErrFitDivergence, maxIter)
}

func (p boundedProblem) clamp(x []float64) {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], p.lower[i]), p.upper[i])
	}
}

// projectedGradient is ‖clamp(x - g) - x‖∞, zero at a bounded stationary point.
func (p boundedProblem) projectedGradient(x []float64, grad *mat.VecDense) float64 {
	worst := 0.0
	for i := range x {
		moved := math.Min(math.Max(x[i]-grad.AtVec(i), p.lower[i]), p.upper[i])
		worst = math.Max(worst, math.Abs(moved-x[i]))
	}
	return worst
}

// free reports, per parameter, whether descent can move it; a parameter on a
// bound whose gradient points outward is held.
func (p boundedProblem) free(x []float64, grad *mat.VecDense) []bool {
	out := make([]bool, len(x))
	for i := range x {
		g := grad.AtVec(i)
		atLower := x[i] <= p.lower[i] && g > 0
		atUpper := x[i] >= p.upper[i] && g < 0
		out[i] = !atLower && !atUpper
	}
	return out
}

func stepIsSmall(from, to []float64) bool {
	for i := range from {
		if math.Abs(to[i]-from[i]) > lmXTol*(math.Abs(from[i])+lmXTol) {
			return false
		}
	}
	return true
}

func halfSumSquares(r []float64) float64 {
	s := 0.0
	for _, v := range r {
		s += v * v
	}
	return s / 2
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
