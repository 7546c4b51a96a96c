package CSM

import (
	"github.com/notargets/gocsm/material"
	"github.com/notargets/gocsm/tensor"
)

// Kinematics is the element local scratch of one worker, sized once from the
// problem and reused for every element the worker owns.
type Kinematics struct {
	dim, nln, nq int
	GradPhi      []float64        // physical basis gradients, [(dir*nln + k)*nq + q]
	States       []material.State // one per quadrature point
	Stress       []tensor.Mat     // PK1 per quadrature point
}

func NewKinematics(p *Problem) (kin *Kinematics) {
	var (
		dim, nln, nq = p.Dim, p.Mesh.Nln, p.NumQuadPoints
	)
	kin = &Kinematics{
		dim:     dim,
		nln:     nln,
		nq:      nq,
		GradPhi: make([]float64, dim*nln*nq),
		States:  make([]material.State, nq),
		Stress:  make([]tensor.Mat, nq),
	}
	return
}

func (kin *Kinematics) gradPhi(dir, k, q int) float64 {
	return kin.GradPhi[(dir*kin.nln+k)*kin.nq+q]
}

// GradRow returns the rank one gradient of the vector basis function of local
// node k and component comp at quadrature point q: only row comp is non zero.
func (kin *Kinematics) GradRow(k, comp, q int) (G tensor.Mat) {
	for d := 0; d < kin.dim; d++ {
		G[comp][d] = kin.gradPhi(d, k, q)
	}
	return
}

// Evaluate computes the deformation state of element ie at the first nq
// quadrature points. It stops at the first point where the element is
// inverted and reports it in the returned status.
func (kin *Kinematics) Evaluate(p *Problem, ie, nq int) (status ElementStatus) {
	var (
		dim, nln   = kin.dim, kin.nln
		NumQP      = p.NumQuadPoints
		invJ       = p.Geom.InvJac[ie*dim*dim : (ie+1)*dim*dim]
		gradRefPhi = p.Quad.GradRefPhi
	)
	for q := 0; q < nq; q++ {
		// Chain rule push forward of the reference gradients
		for k := 0; k < nln; k++ {
			for d1 := 0; d1 < dim; d1++ {
				var sum float64
				for d2 := 0; d2 < dim; d2++ {
					sum += invJ[d1*dim+d2] * gradRefPhi[(k*NumQP+q)*dim+d2]
				}
				kin.GradPhi[(d1*nln+k)*kin.nq+q] = sum
			}
		}
		F := tensor.Identity(dim)
		for d1 := 0; d1 < dim; d1++ {
			for k := 0; k < nln; k++ {
				uk := p.U[p.DOF(ie, k, d1)-1]
				for d2 := 0; d2 < dim; d2++ {
					F[d1][d2] += uk * kin.gradPhi(d2, k, q)
				}
			}
		}
		s := &kin.States[q]
		s.Update(dim, F)
		if s.Degenerate() {
			status = ElementStatus{Degenerate: true, QuadPoint: q, DetF: s.DetF}
			return
		}
		kin.Stress[q] = p.Material.PK1(s)
	}
	return
}
