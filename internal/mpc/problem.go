package mpc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Problem is the condensed single-axis QP. Both horizontal axes share it.
//
// Variables are the accelerations a[0..H-1]. Rows 0..H-1 of A bound each
// acceleration; rows H..2H-1 bound the predicted velocities v[1..H], scaled
// by 1/dt so that every entry of A is 0 or 1.
type Problem struct {
	params   Params
	settings SolverSettings
	n, m     int

	p    *mat.SymDense
	a    *mat.Dense
	chol mat.Cholesky
	rho  float64

	// q = 2·(c1·(x0-g) + c2·v0)
	c1, c2 []float64
}

// NewProblem builds and factorises the fixed problem structure.
func NewProblem(params Params) (*Problem, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	h := params.Horizon
	dt := params.Dt
	pr := &Problem{
		params:   params,
		settings: params.Solver.withDefaults(),
		n:        h,
		m:        2 * h,
		c1:       make([]float64, h),
		c2:       make([]float64, h),
	}

	// Position sensitivity: x[k] = x0 + k·dt·v0 + Σ_j sx[k][j]·a[j].
	sx := mat.NewDense(h+1, h, nil)
	for k := 2; k <= h; k++ {
		for j := 0; j <= k-2; j++ {
			sx.Set(k, j, dt*dt*float64(k-1-j))
		}
	}

	weights := make([]float64, h+1)
	for k := 0; k < h; k++ {
		weights[k] = 1
	}
	weights[h] = params.LambdaT

	wsx := mat.NewDense(h+1, h, nil)
	wsx.Apply(func(i, j int, v float64) float64 { return weights[i] * v }, sx)

	var hess mat.Dense
	hess.Mul(sx.T(), wsx)
	pr.p = mat.NewSymDense(h, nil)
	for i := 0; i < h; i++ {
		for j := i; j < h; j++ {
			v := 2 * hess.At(i, j)
			if i == j {
				v += 2 * params.LambdaU
			}
			pr.p.SetSym(i, j, v)
		}
	}

	for j := 0; j < h; j++ {
		for k := 0; k <= h; k++ {
			w := wsx.At(k, j)
			pr.c1[j] += w
			pr.c2[j] += w * float64(k) * dt
		}
	}

	pr.a = mat.NewDense(pr.m, h, nil)
	for i := 0; i < h; i++ {
		pr.a.Set(i, i, 1)
		for j := 0; j <= i; j++ {
			pr.a.Set(h+i, j, 1)
		}
	}

	pr.rho = pr.settings.Rho
	if pr.rho <= 0 {
		pr.rho = mat.Trace(pr.p) / float64(h)
	}

	var ata mat.Dense
	ata.Mul(pr.a.T(), pr.a)
	kkt := mat.NewSymDense(h, nil)
	for i := 0; i < h; i++ {
		for j := i; j < h; j++ {
			v := pr.p.At(i, j) + pr.rho*ata.At(i, j)
			if i == j {
				v += pr.settings.Sigma
			}
			kkt.SetSym(i, j, v)
		}
	}
	if ok := pr.chol.Factorize(kkt); !ok {
		return nil, fmt.Errorf("%w: horizon %d", ErrFactorization, h)
	}
	return pr, nil
}

func (pr *Problem) Params() Params { return pr.params }
func (pr *Problem) Horizon() int   { return pr.n }

// linear fills q for one axis.
func (pr *Problem) linear(q []float64, x0, v0, goal float64) {
	for j := range q {
		q[j] = 2 * (pr.c1[j]*(x0-goal) + pr.c2[j]*v0)
	}
}

// bounds fills l and u for one axis given its initial velocity.
func (pr *Problem) bounds(l, u []float64, v0 float64) {
	h := pr.n
	for i := 0; i < h; i++ {
		l[i], u[i] = -pr.params.UMax, pr.params.UMax
		l[h+i] = (-pr.params.VMax - v0) / pr.params.Dt
		u[h+i] = (pr.params.VMax - v0) / pr.params.Dt
	}
}

// reachable reports whether the first predicted velocity can be brought
// inside the velocity box with one bounded acceleration.
func (pr *Problem) reachable(v0 float64) bool {
	slack := pr.params.VMax + pr.params.UMax*pr.params.Dt
	return v0 <= slack && v0 >= -slack
}
