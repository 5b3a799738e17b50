package mpc

import (
	"errors"
	"fmt"
)

var (
	// ErrBadParams indicates a horizon or bound that cannot form a QP.
	ErrBadParams = errors.New("mpc: invalid parameters")

	// ErrFactorization indicates the KKT matrix was not positive definite.
	ErrFactorization = errors.New("mpc: kkt factorization failed")
)

// Params fixes the cost and constraint structure of the problem.
type Params struct {
	Horizon int     `yaml:"horizon"`
	Dt      float64 `yaml:"dt"`
	UMax    float64 `yaml:"u_max"`
	VMax    float64 `yaml:"v_max"`
	LambdaU float64 `yaml:"lambda_u"`
	LambdaT float64 `yaml:"lambda_t"`

	Solver SolverSettings `yaml:"solver"`
}

// SolverSettings tunes the ADMM iteration. Zero values select defaults.
type SolverSettings struct {
	Rho     float64 `yaml:"rho"`
	Sigma   float64 `yaml:"sigma"`
	Alpha   float64 `yaml:"alpha"`
	EpsAbs  float64 `yaml:"eps_abs"`
	EpsRel  float64 `yaml:"eps_rel"`
	MaxIter int     `yaml:"max_iter"`
}

// DefaultParams mirrors the tuned predictive pusher: 15 steps at 60 Hz.
func DefaultParams() Params {
	return Params{
		Horizon: 15,
		Dt:      1.0 / 60.0,
		UMax:    3,
		VMax:    0.4,
		LambdaU: 1e-3,
		LambdaT: 5,
	}
}

func (s SolverSettings) withDefaults() SolverSettings {
	if s.Sigma <= 0 {
		s.Sigma = 1e-6
	}
	if s.Alpha <= 0 || s.Alpha >= 2 {
		s.Alpha = 1.6
	}
	if s.EpsAbs <= 0 {
		s.EpsAbs = 1e-5
	}
	if s.EpsRel <= 0 {
		s.EpsRel = 1e-4
	}
	if s.MaxIter <= 0 {
		s.MaxIter = 10000
	}
	return s
}

// Validate rejects parameters that cannot form a convex QP.
func (p Params) Validate() error {
	switch {
	case p.Horizon < 1:
		return fmt.Errorf("%w: horizon %d", ErrBadParams, p.Horizon)
	case p.Dt <= 0:
		return fmt.Errorf("%w: dt %g", ErrBadParams, p.Dt)
	case p.UMax <= 0 || p.VMax <= 0:
		return fmt.Errorf("%w: bounds u_max=%g v_max=%g", ErrBadParams, p.UMax, p.VMax)
	case p.LambdaU < 0 || p.LambdaT < 0:
		return fmt.Errorf("%w: negative weight", ErrBadParams)
	case p.LambdaU == 0:
		// P must stay positive definite for the factorisation.
		return fmt.Errorf("%w: lambda_u must be positive", ErrBadParams)
	}
	return nil
}
