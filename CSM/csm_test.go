package CSM

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gocsm/assembly"
	"github.com/notargets/gocsm/material"
	"github.com/notargets/gocsm/mesh"
	"github.com/notargets/gocsm/tensor"
	"github.com/notargets/gocsm/utils"
)

var testGradient = tensor.Mat{
	{0.08, 0.02, -0.03},
	{-0.01, -0.04, 0.05},
	{0.03, 0.01, 0.06},
}

func newBoxProblem(t *testing.T, dim, order int, divisions []int, lengths []float64,
	ProcLimit int) (p *Problem, m *mesh.Mesh) {
	var err error
	m, err = mesh.NewBox(dim, divisions, lengths)
	require.NoError(t, err)
	r, err := mesh.NewQuadrature(dim, order)
	require.NoError(t, err)
	Phi, GradRefPhi := mesh.TabulateP1(r)
	InvJac, DetJac, err := m.GeometricFactors()
	require.NoError(t, err)
	nh, err := material.NewNeoHookean(1., 0.3)
	require.NoError(t, err)
	p, err = NewProblem(dim, nh, make([]float64, dim*m.NumNodes),
		Connectivity{Elements: m.EToV, RowsPerElement: m.Nln, Nln: m.Nln},
		Quadrature{Weights: r.Weights, Phi: Phi, GradRefPhi: GradRefPhi},
		Geometry{InvJac: InvJac, DetJac: DetJac},
		ProcLimit)
	require.NoError(t, err)
	return
}

func randomField(n int, amp float64, seed int64) (U []float64) {
	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	U = make([]float64, n)
	for i := range U {
		U[i] = amp * (2*rng.Float64() - 1)
	}
	return
}

func withAffineNoise(t *testing.T, p *Problem, m *mesh.Mesh, amp float64, seed int64) *Problem {
	U := m.AffineDisplacement(testGradient)
	noise := randomField(len(U), amp, seed)
	for i := range U {
		U[i] += noise[i]
	}
	pU, err := p.WithDisplacement(U)
	require.NoError(t, err)
	return pU
}

func TestOutputSizes(t *testing.T) {
	{ // 4 node tetrahedra: 12 force and 144 tangent entries per element
		p, m := newBoxProblem(t, 3, 1, []int{2, 1, 1}, []float64{1, 1, 1}, 0)
		N := m.K
		assert.Equal(t, 12, N)
		F, err := p.Forces()
		require.NoError(t, err)
		assert.Len(t, F.Rows, 12*N)
		assert.Len(t, F.Coef, 12*N)
		assert.Len(t, F.Status, N)
		J, err := p.Jacobian()
		require.NoError(t, err)
		assert.Len(t, J.Rows, 144*N)
		assert.Len(t, J.Cols, 144*N)
		assert.Len(t, J.Coef, 144*N)
		S, err := p.Stress()
		require.NoError(t, err)
		nr, nc := S.Sigma.Dims()
		assert.Equal(t, N, nr)
		assert.Equal(t, 9, nc)
	}
	{ // Triangles: 6 and 36
		p, m := newBoxProblem(t, 2, 2, []int{2, 3}, []float64{1, 1}, 0)
		F, err := p.Forces()
		require.NoError(t, err)
		assert.Len(t, F.Coef, 6*m.K)
		J, err := p.Jacobian()
		require.NoError(t, err)
		assert.Len(t, J.Coef, 36*m.K)
	}
}

func TestTripletIndexing(t *testing.T) {
	p, m := newBoxProblem(t, 3, 1, []int{1, 1, 1}, []float64{1, 1, 1}, 0)
	var (
		nln, dim = m.Nln, m.Dim
		NpE      = nln * dim
	)
	F, err := p.Forces()
	require.NoError(t, err)
	J, err := p.Jacobian()
	require.NoError(t, err)
	for ie := 0; ie < m.K; ie++ {
		for a := 0; a < nln; a++ {
			for ic := 0; ic < dim; ic++ {
				row := m.EToV[ie*nln+a] + ic*m.NumNodes
				assert.Equal(t, row, F.Rows[ie*NpE+a*dim+ic])
				for b := 0; b < nln; b++ {
					for jc := 0; jc < dim; jc++ {
						iii := ie*NpE*NpE + (a*dim+ic)*NpE + b*dim + jc
						assert.Equal(t, row, J.Rows[iii])
						assert.Equal(t, m.EToV[ie*nln+b]+jc*m.NumNodes, J.Cols[iii])
					}
				}
			}
		}
	}
}

func TestZeroDisplacement(t *testing.T) {
	for _, dim := range []int{2, 3} {
		p, _ := newBoxProblem(t, dim, 2, []int{2, 2, 2}[:dim], []float64{1, 1, 1}[:dim], 0)
		kin := NewKinematics(p)
		for ie := 0; ie < p.NumElements; ie++ {
			assert.False(t, kin.Evaluate(p, ie, p.NumQuadPoints).Degenerate)
			for q := 0; q < p.NumQuadPoints; q++ {
				s := kin.States[q]
				assert.Equal(t, tensor.Identity(dim), s.F)
				assert.Equal(t, 1., s.DetF)
				assert.Equal(t, 0., s.LogDetF)
			}
		}
		F, err := p.Forces()
		require.NoError(t, err)
		for _, c := range F.Coef {
			assert.InDelta(t, 0., c, 1.e-14)
		}
		S, err := p.Stress()
		require.NoError(t, err)
		assert.InDelta(t, 0., mat.Norm(S.Sigma, 2), 1.e-14)
	}
}

func TestAffineDeformation(t *testing.T) {
	// A homogeneous deformation gives the same stress in every element and a
	// self equilibrated residual at interior nodes.
	for _, dim := range []int{2, 3} {
		lengths := []float64{1, 1.2, 0.8}[:dim]
		p, m := newBoxProblem(t, dim, 2, []int{2, 2, 2}[:dim], lengths, 0)
		p, err := p.WithDisplacement(m.AffineDisplacement(testGradient))
		require.NoError(t, err)
		F := tensor.Identity(dim)
		tensor.AddTo(dim, &F, testGradient)
		P := p.Material.PK1(material.NewState(dim, F))
		S, err := p.Stress()
		require.NoError(t, err)
		for ie := 0; ie < p.NumElements; ie++ {
			for d1 := 0; d1 < dim; d1++ {
				for d2 := 0; d2 < dim; d2++ {
					assert.InDelta(t, P[d1][d2], S.Sigma.At(ie, d1+d2*dim), 1.e-12)
				}
			}
		}
		R, err := p.AssembledForces()
		require.NoError(t, err)
		boundary := make(map[int]bool)
		for _, n := range m.BoundaryNodes(lengths) {
			boundary[n] = true
		}
		var interior int
		for n := 0; n < m.NumNodes; n++ {
			if boundary[n] {
				continue
			}
			interior++
			for comp := 0; comp < dim; comp++ {
				assert.InDelta(t, 0., R[comp*m.NumNodes+n], 1.e-12)
			}
		}
		assert.Equal(t, 1, interior)
	}
}

func TestTangentConsistency(t *testing.T) {
	for _, dim := range []int{2, 3} {
		for _, order := range []int{1, 2} {
			p, m := newBoxProblem(t, dim, order, []int{2, 2, 1}[:dim], []float64{1, 1, 1}[:dim], 0)
			p = withAffineNoise(t, p, m, 0.02, 7)
			V := randomField(len(p.U), 0.1, 11)
			var errs []float64
			for _, eps := range []float64{1.e-4, 1.e-5, 1.e-6, 1.e-7} {
				relErr, err := p.CheckTangent(V, eps)
				require.NoError(t, err)
				assert.Less(t, relErr, 100*eps+1.e-6, "dim %d, order %d, eps %g", dim, order, eps)
				errs = append(errs, relErr)
			}
			// First order convergence of the forward difference
			assert.Less(t, errs[1], errs[0])
			assert.Less(t, errs[2], errs[1])
		}
	}
}

func TestTangentAgainstFiniteDifferenceJacobian(t *testing.T) {
	for _, dim := range []int{2, 3} {
		p, m := newBoxProblem(t, dim, 2, []int{2, 1, 1}[:dim], []float64{1, 1, 1}[:dim], 0)
		p = withAffineNoise(t, p, m, 0.05, 3)
		var (
			nDOF = p.NumDOF()
			dst  = mat.NewDense(nDOF, nDOF, nil)
		)
		residual := func(y, x []float64) {
			px, err := p.WithDisplacement(x)
			require.NoError(t, err)
			R, err := px.AssembledForces()
			require.NoError(t, err)
			copy(y, R)
		}
		fd.Jacobian(dst, residual, p.U, &fd.JacobianSettings{Formula: fd.Central})
		J, err := p.Jacobian()
		require.NoError(t, err)
		K, err := assembly.Matrix(nDOF, J.Rows, J.Cols, J.Coef)
		require.NoError(t, err)
		for i := 0; i < nDOF; i++ {
			for j := 0; j < nDOF; j++ {
				assert.InDelta(t, dst.At(i, j), K.At(i, j), 1.e-6, "dim %d, K[%d][%d]", dim, i, j)
			}
		}
	}
}

func TestTangentSymmetry(t *testing.T) {
	for _, dim := range []int{2, 3} {
		p, m := newBoxProblem(t, dim, 2, []int{2, 2, 1}[:dim], []float64{1, 1, 1}[:dim], 0)
		p = withAffineNoise(t, p, m, 0.05, 5)
		J, err := p.Jacobian()
		require.NoError(t, err)
		NpE := m.Nln * dim
		for ie := 0; ie < m.K; ie++ {
			local := J.Coef[ie*NpE*NpE : (ie+1)*NpE*NpE]
			for i := 0; i < NpE; i++ {
				for j := 0; j < i; j++ {
					assert.InDelta(t, local[i*NpE+j], local[j*NpE+i], 1.e-12*(1+math.Abs(local[i*NpE+j])))
				}
			}
		}
		K, err := assembly.Matrix(p.NumDOF(), J.Rows, J.Cols, J.Coef)
		require.NoError(t, err)
		assert.Less(t, assembly.SymmetryDefect(K), 1.e-12)
	}
}

func TestElementInversion(t *testing.T) {
	p, m := newBoxProblem(t, 3, 2, []int{2, 2, 2}, []float64{1, 1, 1}, 0)
	var (
		center = 13 // 0-based index of the node at (0.5, 0.5, 0.5)
		nln    = m.Nln
		UBase  = m.AffineDisplacement(testGradient)
		U      = append([]float64{}, UBase...)
	)
	// Push the center node past the far faces of its neighbours
	U[0*m.NumNodes+center] += 1.5
	pBase, err := p.WithDisplacement(UBase)
	require.NoError(t, err)
	pInv, err := p.WithDisplacement(U)
	require.NoError(t, err)
	FBase, err := pBase.Forces()
	require.NoError(t, err)
	JBase, err := pBase.Jacobian()
	require.NoError(t, err)

	hasCenter := func(ie int) bool {
		for k := 0; k < nln; k++ {
			if m.EToV[ie*nln+k] == center+1 {
				return true
			}
		}
		return false
	}
	check := func(status []ElementStatus, err error) {
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrElementInversion)
		var dee *DegenerateElementError
		require.True(t, errors.As(err, &dee))
		assert.NotEmpty(t, dee.Elements)
		assert.Len(t, dee.Status, len(dee.Elements))
		for i, ie := range dee.Elements {
			assert.True(t, hasCenter(ie), "element %d", ie)
			assert.True(t, status[ie].Degenerate)
			assert.LessOrEqual(t, dee.Status[i].DetF, 0.)
		}
		assert.Contains(t, err.Error(), "degenerate")
	}

	F, err := pInv.Forces()
	check(F.Status, err)
	assert.False(t, utils.IsNan(F.Coef))
	J, err := pInv.Jacobian()
	check(J.Status, err)
	assert.False(t, utils.IsNan(J.Coef))
	S, err := pInv.Stress()
	assert.False(t, utils.IsNan(S.Sigma))

	NpE := nln * 3
	for ie := 0; ie < m.K; ie++ {
		switch {
		case F.Status[ie].Degenerate:
			for _, c := range F.Coef[ie*NpE : (ie+1)*NpE] {
				assert.Equal(t, 0., c)
			}
			for _, c := range J.Coef[ie*NpE*NpE : (ie+1)*NpE*NpE] {
				assert.Equal(t, 0., c)
			}
		case !hasCenter(ie):
			// Elements away from the moved node are untouched
			assert.Equal(t, FBase.Coef[ie*NpE:(ie+1)*NpE], F.Coef[ie*NpE:(ie+1)*NpE])
			assert.Equal(t, JBase.Coef[ie*NpE*NpE:(ie+1)*NpE*NpE], J.Coef[ie*NpE*NpE:(ie+1)*NpE*NpE])
		}
	}
	_, err = pInv.CheckTangent(make([]float64, len(U)), 1.e-6)
	assert.ErrorIs(t, err, ErrElementInversion)
}

func TestParallelDeterminism(t *testing.T) {
	pSerial, m := newBoxProblem(t, 3, 2, []int{3, 2, 2}, []float64{1, 1, 1}, 1)
	pSerial = withAffineNoise(t, pSerial, m, 0.02, 9)
	assert.Equal(t, 1, pSerial.Partitions.ParallelDegree)
	pPar, _ := newBoxProblem(t, 3, 2, []int{3, 2, 2}, []float64{1, 1, 1}, 5)
	pPar, err := pPar.WithDisplacement(pSerial.U)
	require.NoError(t, err)
	assert.Equal(t, 5, pPar.Partitions.ParallelDegree)

	F1, err := pSerial.Forces()
	require.NoError(t, err)
	F2, err := pPar.Forces()
	require.NoError(t, err)
	assert.Equal(t, F1, F2)
	J1, err := pSerial.Jacobian()
	require.NoError(t, err)
	J2, err := pPar.Jacobian()
	require.NoError(t, err)
	assert.Equal(t, J1, J2)
	S1, err := pSerial.Stress()
	require.NoError(t, err)
	S2, err := pPar.Stress()
	require.NoError(t, err)
	assert.True(t, mat.Equal(S1.Sigma, S2.Sigma))
}

func TestConnectivityTagRows(t *testing.T) {
	// Trailing rows in the connectivity table do not change the result
	p, m := newBoxProblem(t, 2, 1, []int{2, 2}, []float64{1, 1}, 0)
	p = withAffineNoise(t, p, m, 0.02, 1)
	tagged := make([]int, 0, m.K*(m.Nln+1))
	for ie := 0; ie < m.K; ie++ {
		tagged = append(tagged, m.EToV[ie*m.Nln:(ie+1)*m.Nln]...)
		tagged = append(tagged, 99) // region tag
	}
	pTag, err := NewProblem(p.Dim, p.Material, p.U,
		Connectivity{Elements: tagged, RowsPerElement: m.Nln + 1, Nln: m.Nln},
		p.Quad, p.Geom, 0)
	require.NoError(t, err)
	F1, err := p.Forces()
	require.NoError(t, err)
	F2, err := pTag.Forces()
	require.NoError(t, err)
	assert.Equal(t, F1.Rows, F2.Rows)
	assert.Equal(t, F1.Coef, F2.Coef)
}

func TestInputValidation(t *testing.T) {
	p, m := newBoxProblem(t, 2, 1, []int{1, 1}, []float64{1, 1}, 0)
	var (
		conn = p.Mesh
		quad = p.Quad
		geom = p.Geom
		U    = p.U
		nh   = p.Material
	)
	{
		_, err := NewProblem(4, nh, U, conn, quad, geom, 0)
		assert.ErrorIs(t, err, ErrDimension)
		_, err = NewProblem(1, nh, U, conn, quad, geom, 0)
		assert.ErrorIs(t, err, ErrDimension)
	}
	{
		_, err := NewProblem(2, nil, U, conn, quad, geom, 0)
		assert.ErrorIs(t, err, ErrInputShape)
		_, err = NewProblem(2, nh, U[:len(U)-1], conn, quad, geom, 0)
		assert.ErrorIs(t, err, ErrInputShape)
		_, err = NewProblem(2, nh, U, conn, quad, Geometry{InvJac: geom.InvJac[1:], DetJac: geom.DetJac}, 0)
		assert.ErrorIs(t, err, ErrInputShape)
		_, err = NewProblem(2, nh, U, conn, quad, Geometry{InvJac: geom.InvJac, DetJac: geom.DetJac[1:]}, 0)
		assert.ErrorIs(t, err, ErrInputShape)
		_, err = NewProblem(2, nh, U, conn, Quadrature{Weights: quad.Weights, Phi: quad.Phi, GradRefPhi: quad.GradRefPhi[1:]}, geom, 0)
		assert.ErrorIs(t, err, ErrInputShape)
		_, err = NewProblem(2, nh, U, conn, Quadrature{Phi: quad.Phi, GradRefPhi: quad.GradRefPhi}, geom, 0)
		assert.ErrorIs(t, err, ErrInputShape)
		_, err = NewProblem(2, nh, U, Connectivity{Elements: conn.Elements[1:], RowsPerElement: 3, Nln: 3}, quad, geom, 0)
		assert.ErrorIs(t, err, ErrInputShape)
		_, err = NewProblem(2, nh, U, Connectivity{Elements: conn.Elements, RowsPerElement: 2, Nln: 3}, quad, geom, 0)
		assert.ErrorIs(t, err, ErrInputShape)
		bad := append([]int{}, conn.Elements...)
		bad[0] = m.NumNodes + 1
		_, err = NewProblem(2, nh, U, Connectivity{Elements: bad, RowsPerElement: 3, Nln: 3}, quad, geom, 0)
		assert.ErrorIs(t, err, ErrInputShape)
	}
	{
		_, err := p.WithDisplacement(make([]float64, len(U)+2))
		assert.ErrorIs(t, err, ErrInputShape)
		_, err = p.CheckTangent(make([]float64, 3), 1.e-6)
		assert.ErrorIs(t, err, ErrInputShape)
	}
}
