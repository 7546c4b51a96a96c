package CSM

import (
	"github.com/notargets/gocsm/tensor"
)

// ForceResult is the residual in triplet form, Nln*Dim entries per element
// ordered by local node then component.
type ForceResult struct {
	Rows   []int     // 1-based global DOF
	Coef   []float64 // integrated P:Grad(v), scaled by the element Jacobian
	Status []ElementStatus
}

// Forces integrates the first Piola-Kirchhoff stress against the test function
// gradients of every element. When elements are inverted the result is still
// returned, with those elements zeroed, together with a *DegenerateElementError.
func (p *Problem) Forces() (res *ForceResult, err error) {
	var (
		K   = p.NumElements
		NpE = p.Mesh.Nln * p.Dim
	)
	res = &ForceResult{
		Rows:   make([]int, K*NpE),
		Coef:   make([]float64, K*NpE),
		Status: make([]ElementStatus, K),
	}
	p.Partitions.ParallelFor(func(np, kMin, kMax int) {
		kin := NewKinematics(p)
		for ie := kMin; ie < kMax; ie++ {
			res.Status[ie] = p.elementForces(kin, ie,
				res.Rows[ie*NpE:(ie+1)*NpE], res.Coef[ie*NpE:(ie+1)*NpE])
		}
	})
	err = collectDegenerate(res.Status)
	return
}

func (p *Problem) elementForces(kin *Kinematics, ie int, rows []int, coef []float64) (status ElementStatus) {
	var (
		dim, nln = p.Dim, p.Mesh.Nln
		nq       = p.NumQuadPoints
		w        = p.Quad.Weights
	)
	status = kin.Evaluate(p, ie, nq)
	var ii int
	for a := 0; a < nln; a++ {
		for ic := 0; ic < dim; ic++ {
			rows[ii] = p.DOF(ie, a, ic)
			coef[ii] = 0
			if !status.Degenerate {
				var rloc float64
				for q := 0; q < nq; q++ {
					rloc += tensor.Dot(dim, kin.GradRow(a, ic, q), kin.Stress[q]) * w[q]
				}
				coef[ii] = rloc * p.Geom.DetJac[ie]
			}
			ii++
		}
	}
	return
}
