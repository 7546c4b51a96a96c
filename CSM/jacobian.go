package CSM

import (
	"github.com/notargets/gocsm/tensor"
)

// JacobianResult is the consistent tangent in triplet form, (Nln*Dim)^2
// entries per element ordered by test node, test component, trial node, trial
// component.
type JacobianResult struct {
	Rows, Cols []int // 1-based global DOF
	Coef       []float64
	Status     []ElementStatus
}

// Jacobian integrates the directional derivative of the stress, Grad(v) :
// dP[Grad(u)], over every element. Degenerate elements are reported as in
// Forces.
func (p *Problem) Jacobian() (res *JacobianResult, err error) {
	var (
		K    = p.NumElements
		NpE  = p.Mesh.Nln * p.Dim
		NpE2 = NpE * NpE
	)
	res = &JacobianResult{
		Rows:   make([]int, K*NpE2),
		Cols:   make([]int, K*NpE2),
		Coef:   make([]float64, K*NpE2),
		Status: make([]ElementStatus, K),
	}
	p.Partitions.ParallelFor(func(np, kMin, kMax int) {
		var (
			kin = NewKinematics(p)
			// dP per (trial node, trial component, quadrature point)
			dP = make([]tensor.Mat, NpE*p.NumQuadPoints)
		)
		for ie := kMin; ie < kMax; ie++ {
			res.Status[ie] = p.elementJacobian(kin, dP, ie,
				res.Rows[ie*NpE2:(ie+1)*NpE2], res.Cols[ie*NpE2:(ie+1)*NpE2],
				res.Coef[ie*NpE2:(ie+1)*NpE2])
		}
	})
	err = collectDegenerate(res.Status)
	return
}

func (p *Problem) elementJacobian(kin *Kinematics, dP []tensor.Mat, ie int,
	rows, cols []int, coef []float64) (status ElementStatus) {
	var (
		dim, nln = p.Dim, p.Mesh.Nln
		nq       = p.NumQuadPoints
		w        = p.Quad.Weights
		nh       = p.Material
	)
	status = kin.Evaluate(p, ie, nq)
	if !status.Degenerate {
		// The tangent is linear in the trial gradient, so it is formed once per
		// trial function and reused for every test function.
		for b := 0; b < nln; b++ {
			for jc := 0; jc < dim; jc++ {
				for q := 0; q < nq; q++ {
					dP[(b*dim+jc)*nq+q] = nh.Tangent(&kin.States[q], kin.GradRow(b, jc, q))
				}
			}
		}
	}
	var iii int
	for a := 0; a < nln; a++ {
		for ic := 0; ic < dim; ic++ {
			row := p.DOF(ie, a, ic)
			for b := 0; b < nln; b++ {
				for jc := 0; jc < dim; jc++ {
					rows[iii] = row
					cols[iii] = p.DOF(ie, b, jc)
					coef[iii] = 0
					if !status.Degenerate {
						var aloc float64
						for q := 0; q < nq; q++ {
							aloc += tensor.Dot(dim, kin.GradRow(a, ic, q), dP[(b*dim+jc)*nq+q]) * w[q]
						}
						coef[iii] = aloc * p.Geom.DetJac[ie]
					}
					iii++
				}
			}
		}
	}
	return
}
