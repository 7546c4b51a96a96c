package material

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/gocsm/tensor"
)

var (
	ErrPoissonRange = errors.New("material: Poisson ratio must lie in (-1, 0.5)")
	ErrYoungModulus = errors.New("material: Young's modulus must be positive and finite")
)

// NeoHookean is the decoupled compressible Neo-Hookean law: an isochoric
// term driven by J^(-2/3) I_C plus a volumetric penalty in J.
type NeoHookean struct {
	Young, Poisson float64
	// derived
	Mu     float64 // shear modulus
	Lambda float64 // first Lamé parameter
	Bulk   float64 // κ = 2/3 μ + λ
}

func NewNeoHookean(Young, Poisson float64) (nh *NeoHookean, err error) {
	if math.IsNaN(Young) || math.IsInf(Young, 0) || Young <= 0 {
		err = fmt.Errorf("have E = %v: %w", Young, ErrYoungModulus)
		return
	}
	if math.IsNaN(Poisson) || Poisson <= -1 || Poisson >= 0.5 {
		err = fmt.Errorf("have ν = %v: %w", Poisson, ErrPoissonRange)
		return
	}
	nh = &NeoHookean{
		Young:   Young,
		Poisson: Poisson,
		Mu:      Young / (2. + 2.*Poisson),
		Lambda:  Young * Poisson / ((1. + Poisson) * (1. - 2.*Poisson)),
	}
	nh.Bulk = (2./3.)*nh.Mu + nh.Lambda
	return
}

func (nh *NeoHookean) String() string {
	return fmt.Sprintf("Neo-Hookean: E = %8.5g, ν = %6.4f, μ = %8.5g, λ = %8.5g, κ = %8.5g",
		nh.Young, nh.Poisson, nh.Mu, nh.Lambda, nh.Bulk)
}

// PK1 returns the first Piola-Kirchhoff stress at the given state
func (nh *NeoHookean) PK1(s *State) (P tensor.Mat) {
	var (
		dim  = s.Dim
		iso  = nh.Mu * s.Pow23
		vol  = 0.5 * nh.Bulk * (s.Pow2 - s.DetF + s.LogDetF)
		icTh = s.IC / 3.
	)
	for d1 := 0; d1 < dim; d1++ {
		for d2 := 0; d2 < dim; d2++ {
			P[d1][d2] = iso*(s.F[d1][d2]-icTh*s.InvFT[d1][d2]) + vol*s.InvFT[d1][d2]
		}
	}
	return
}

// Tangent returns the directional derivative dP[GradU] of PK1 at the state
func (nh *NeoHookean) Tangent(s *State, GradU tensor.Mat) (dP tensor.Mat) {
	var (
		dim      = s.Dim
		mu23     = nh.Mu * s.Pow23
		invFTdGU = tensor.Dot(dim, s.InvFT, GradU)
		FdGU     = tensor.Dot(dim, s.F, GradU)
		// F^-T GradU^T F^-T, the directional derivative of -F^-T
		dInvFT = tensor.Product(dim, 1, tensor.Product(dim, 1, s.InvFT, GradU, false, true), s.InvFT, false, false)
	)
	// Volumetric
	dP = tensor.Scale(dim, 0.5*nh.Bulk*(2.*s.Pow2-s.DetF+1.)*invFTdGU, s.InvFT)
	tensor.AddTo(dim, &dP, tensor.Scale(dim, 0.5*nh.Bulk*(-s.Pow2+s.DetF-s.LogDetF), dInvFT))
	// Isochoric
	tensor.AddTo(dim, &dP, tensor.Scale(dim, -2./3.*mu23*invFTdGU, s.F))
	tensor.AddTo(dim, &dP, tensor.Scale(dim, mu23*(2./9.*s.IC*invFTdGU-2./3.*FdGU), s.InvFT))
	tensor.AddTo(dim, &dP, tensor.Scale(dim, mu23, GradU))
	tensor.AddTo(dim, &dP, tensor.Scale(dim, 1./3.*mu23*s.IC, dInvFT))
	return
}

// StrainEnergy is the potential whose derivative with respect to F is PK1
func (nh *NeoHookean) StrainEnergy(s *State) float64 {
	var (
		J = s.DetF
	)
	return 0.5*nh.Mu*(s.Pow23*s.IC-3.) +
		0.25*nh.Bulk*((J-1.)*(J-1.)+s.LogDetF*s.LogDetF)
}
