package CSM

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gocsm/assembly"
)

// AssembledForces sums the force triplets into the global residual
func (p *Problem) AssembledForces() (F []float64, err error) {
	var res *ForceResult
	if res, err = p.Forces(); err != nil {
		return
	}
	return assembly.Vector(p.NumDOF(), res.Rows, res.Coef)
}

// CheckTangent compares the assembled tangent applied to V with the forward
// difference (F(U + eps V) - F(U)) / eps, returning the relative error.
func (p *Problem) CheckTangent(V []float64, eps float64) (relErr float64, err error) {
	var (
		F0, F1 []float64
		jac    *JacobianResult
		pEps   *Problem
	)
	if len(V) != len(p.U) {
		err = fmt.Errorf("perturbation length %d, want %d: %w", len(V), len(p.U), ErrInputShape)
		return
	}
	if F0, err = p.AssembledForces(); err != nil {
		return
	}
	if jac, err = p.Jacobian(); err != nil {
		return
	}
	K, err := assembly.Matrix(p.NumDOF(), jac.Rows, jac.Cols, jac.Coef)
	if err != nil {
		return
	}
	UEps := make([]float64, len(p.U))
	floats.AddScaledTo(UEps, p.U, eps, V)
	if pEps, err = p.WithDisplacement(UEps); err != nil {
		return
	}
	if F1, err = pEps.AssembledForces(); err != nil {
		return
	}
	dF := make([]float64, len(F0))
	floats.SubTo(dF, F1, F0)
	floats.Scale(1./eps, dF)
	relErr = assembly.RelativeError(dF, assembly.MulVec(K, V))
	return
}
