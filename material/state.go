package material

import (
	"math"

	"github.com/notargets/gocsm/tensor"
)

// State holds the deformation gradient and the derived quantities the law
// needs at one quadrature point.
type State struct {
	Dim     int
	F       tensor.Mat // deformation gradient, I + Grad(u)
	InvFT   tensor.Mat // F^-T
	C       tensor.Mat // right Cauchy-Green, F^T F
	DetF    float64
	IC      float64 // first invariant of C, with the unit out-of-plane stretch added in 2D
	LogDetF float64
	Pow23   float64 // DetF^(-2/3)
	Pow2    float64 // DetF^2
}

// Update recomputes every derived quantity from F. For DetF <= 0 the state is
// degenerate and LogDetF / Pow23 are NaN; check Degenerate before using it.
func (s *State) Update(dim int, F tensor.Mat) {
	s.Dim = dim
	s.F = F
	s.DetF = tensor.Determinant(dim, F)
	s.InvFT = tensor.InverseTranspose(dim, F)
	s.C = tensor.Product(dim, 1, F, F, true, false)
	s.IC = tensor.Trace(dim, s.C)
	if dim == 2 {
		// plane strain, F33 = 1
		s.IC += 1
	}
	s.LogDetF = math.Log(s.DetF)
	s.Pow23 = math.Pow(s.DetF, -2./3.)
	s.Pow2 = s.DetF * s.DetF
}

func (s *State) Degenerate() bool {
	return !(s.DetF > 0) || math.IsInf(s.DetF, 0) || !tensor.IsFinite(s.Dim, s.InvFT)
}

func NewState(dim int, F tensor.Mat) (s *State) {
	s = &State{}
	s.Update(dim, F)
	return
}
