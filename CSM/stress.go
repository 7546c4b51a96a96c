package CSM

import (
	"gonum.org/v1/gonum/mat"
)

type StressResult struct {
	// Sigma has one row per element; entry (d1, d2) of the element tensor is
	// stored in column d1 + d2*Dim.
	Sigma  *mat.Dense
	Status []ElementStatus
}

// Stress recovers the first Piola-Kirchhoff stress of every element at its
// first quadrature point, for postprocessing. No integration or Jacobian
// scaling is applied.
func (p *Problem) Stress() (res *StressResult, err error) {
	var (
		K   = p.NumElements
		dim = p.Dim
	)
	res = &StressResult{
		Sigma:  mat.NewDense(K, dim*dim, nil),
		Status: make([]ElementStatus, K),
	}
	p.Partitions.ParallelFor(func(np, kMin, kMax int) {
		kin := NewKinematics(p)
		for ie := kMin; ie < kMax; ie++ {
			res.Status[ie] = kin.Evaluate(p, ie, 1)
			if res.Status[ie].Degenerate {
				continue
			}
			P := kin.Stress[0]
			for d1 := 0; d1 < dim; d1++ {
				for d2 := 0; d2 < dim; d2++ {
					res.Sigma.Set(ie, d1+d2*dim, P[d1][d2])
				}
			}
		}
	})
	err = collectDegenerate(res.Status)
	return
}
