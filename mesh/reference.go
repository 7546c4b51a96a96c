package mesh

import (
	"fmt"
)

// Rule is a quadrature rule on the reference simplex; the weights sum to its
// measure (1/2 for the triangle, 1/6 for the tetrahedron).
type Rule struct {
	Dim     int
	Points  [][3]float64
	Weights []float64
}

func (r *Rule) NumPoints() int { return len(r.Weights) }

func NewQuadrature(dim, order int) (r *Rule, err error) {
	r = &Rule{Dim: dim}
	switch {
	case dim == 2 && order == 1:
		r.Points = [][3]float64{{1. / 3., 1. / 3.}}
		r.Weights = []float64{0.5}
	case dim == 2 && order == 2:
		r.Points = [][3]float64{
			{1. / 6., 1. / 6.},
			{2. / 3., 1. / 6.},
			{1. / 6., 2. / 3.},
		}
		r.Weights = []float64{1. / 6., 1. / 6., 1. / 6.}
	case dim == 3 && order == 1:
		r.Points = [][3]float64{{0.25, 0.25, 0.25}}
		r.Weights = []float64{1. / 6.}
	case dim == 3 && order == 2:
		const (
			a = 0.5854101966249685
			b = 0.1381966011250105
		)
		r.Points = [][3]float64{
			{b, b, b},
			{a, b, b},
			{b, a, b},
			{b, b, a},
		}
		r.Weights = []float64{1. / 24., 1. / 24., 1. / 24., 1. / 24.}
	default:
		r, err = nil, fmt.Errorf("no simplex quadrature for dim = %d, order = %d", dim, order)
	}
	return
}

// TabulateP1 evaluates the linear Lagrange basis on the reference simplex at
// the rule points. Node 0 sits at the origin and node k at the unit vector
// e_k, so phi_0 = 1 - sum(ξ) and phi_k = ξ_k.
//
//	Phi[k*nq + q]
//	GradRefPhi[(k*nq + q)*Dim + d]
func TabulateP1(r *Rule) (Phi, GradRefPhi []float64) {
	var (
		dim = r.Dim
		nln = dim + 1
		nq  = r.NumPoints()
	)
	Phi = make([]float64, nln*nq)
	GradRefPhi = make([]float64, nln*nq*dim)
	for q, xi := range r.Points {
		phi0 := 1.
		for d := 0; d < dim; d++ {
			phi0 -= xi[d]
			Phi[(d+1)*nq+q] = xi[d]
			GradRefPhi[(0*nq+q)*dim+d] = -1
			GradRefPhi[((d+1)*nq+q)*dim+d] = 1
		}
		Phi[q] = phi0
	}
	return
}
