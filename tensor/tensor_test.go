package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func toDense(dim int, M Mat) (D *mat.Dense) {
	D = mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			D.Set(i, j, M[i][j])
		}
	}
	return
}

func TestTensorKernel(t *testing.T) {
	var (
		A3 = Mat{
			{2, 0.5, -1},
			{0.3, 1.5, 0.2},
			{-0.4, 0.1, 3},
		}
		B3 = Mat{
			{1, 2, 3},
			{0, -1, 4},
			{5, 0.5, 2},
		}
		A2 = Mat{
			{1.2, 0.3},
			{-0.7, 0.9},
		}
		tol = 1.e-12
	)
	{ // Determinant against gonum
		assert.InDelta(t, mat.Det(toDense(3, A3)), Determinant(3, A3), tol)
		assert.InDelta(t, mat.Det(toDense(2, A2)), Determinant(2, A2), tol)
		assert.Equal(t, 1., Determinant(3, Identity(3)))
		assert.Equal(t, 1., Determinant(2, Identity(2)))
	}
	{ // Inverse transpose against gonum
		for _, dim := range []int{2, 3} {
			A := A3
			if dim == 2 {
				A = A2
			}
			var Ainv mat.Dense
			assert.NoError(t, Ainv.Inverse(toDense(dim, A)))
			R := InverseTranspose(dim, A)
			for i := 0; i < dim; i++ {
				for j := 0; j < dim; j++ {
					assert.InDelta(t, Ainv.At(j, i), R[i][j], tol)
				}
			}
			// A^T * A^-T = I
			I := Product(dim, 1, A, R, true, false)
			for i := 0; i < dim; i++ {
				for j := 0; j < dim; j++ {
					assert.InDelta(t, Identity(dim)[i][j], I[i][j], tol)
				}
			}
		}
	}
	{ // Singular input propagates non-finite values
		S := Mat{{1, 2}, {2, 4}}
		R := InverseTranspose(2, S)
		assert.False(t, IsFinite(2, R))
		assert.True(t, IsFinite(3, A3))
	}
	{ // Product with every transpose combination against gonum
		a, b := toDense(3, A3), toDense(3, B3)
		check := func(transA, transB bool, ma, mb mat.Matrix) {
			var C mat.Dense
			C.Mul(ma, mb)
			C.Scale(0.5, &C)
			R := Product(3, 0.5, A3, B3, transA, transB)
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					assert.InDelta(t, C.At(i, j), R[i][j], tol)
				}
			}
		}
		check(false, false, a, b)
		check(true, false, a.T(), b)
		check(false, true, a, b.T())
		check(true, true, a.T(), b.T())
	}
	{ // Trace, Frobenius product, scale and sum
		assert.InDelta(t, 6.5, Trace(3, A3), tol)
		assert.InDelta(t, 2.1, Trace(2, A2), tol)
		assert.InDelta(t, Trace(3, Product(3, 1, A3, B3, true, false)), Dot(3, A3, B3), tol)
		C := Scale(3, 2, A3)
		AddTo(3, &C, Scale(3, -1, A3))
		assert.Equal(t, A3, C)
		assert.Equal(t, A3, Transpose(3, Transpose(3, A3)))
		// Block outside the active dimension stays untouched
		D := Scale(2, 3, A3)
		assert.Equal(t, 0., D[2][2])
		assert.Equal(t, 0., D[0][2])
	}
	{ // Invalid dimension is a programming error
		assert.Panics(t, func() { Determinant(4, A3) })
		assert.True(t, math.IsInf(1/Determinant(2, Mat{}), 1))
	}
}
