package tensor

import "math"

// Mat is a small dense square matrix of runtime dimension 2 or 3, stored in
// the leading dim x dim block. Entries outside that block are ignored and kept
// at zero by every routine in this package.
type Mat [3][3]float64

func Identity(dim int) (I Mat) {
	for i := 0; i < dim; i++ {
		I[i][i] = 1
	}
	return
}

func Determinant(dim int, M Mat) (det float64) {
	switch dim {
	case 2:
		det = M[0][0]*M[1][1] - M[0][1]*M[1][0]
	case 3:
		det = M[0][0]*(M[1][1]*M[2][2]-M[1][2]*M[2][1]) -
			M[0][1]*(M[1][0]*M[2][2]-M[1][2]*M[2][0]) +
			M[0][2]*(M[1][0]*M[2][1]-M[1][1]*M[2][0])
	default:
		panic("tensor: dimension must be 2 or 3")
	}
	return
}

// InverseTranspose returns M^-T through the cofactor matrix. A singular M
// produces Inf/NaN entries, left to the caller to detect.
func InverseTranspose(dim int, M Mat) (R Mat) {
	var (
		det = Determinant(dim, M)
	)
	switch dim {
	case 2:
		R[0][0] = M[1][1] / det
		R[0][1] = -M[1][0] / det
		R[1][0] = -M[0][1] / det
		R[1][1] = M[0][0] / det
	case 3:
		// Cofactor C[i][j], and M^-T = C / det
		R[0][0] = (M[1][1]*M[2][2] - M[1][2]*M[2][1]) / det
		R[0][1] = -(M[1][0]*M[2][2] - M[1][2]*M[2][0]) / det
		R[0][2] = (M[1][0]*M[2][1] - M[1][1]*M[2][0]) / det
		R[1][0] = -(M[0][1]*M[2][2] - M[0][2]*M[2][1]) / det
		R[1][1] = (M[0][0]*M[2][2] - M[0][2]*M[2][0]) / det
		R[1][2] = -(M[0][0]*M[2][1] - M[0][1]*M[2][0]) / det
		R[2][0] = (M[0][1]*M[1][2] - M[0][2]*M[1][1]) / det
		R[2][1] = -(M[0][0]*M[1][2] - M[0][2]*M[1][0]) / det
		R[2][2] = (M[0][0]*M[1][1] - M[0][1]*M[1][0]) / det
	default:
		panic("tensor: dimension must be 2 or 3")
	}
	return
}

func Trace(dim int, M Mat) (tr float64) {
	for i := 0; i < dim; i++ {
		tr += M[i][i]
	}
	return
}

// Dot is the Frobenius inner product A:B
func Dot(dim int, A, B Mat) (sum float64) {
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			sum += A[i][j] * B[i][j]
		}
	}
	return
}

// Product returns alpha * op(A) * op(B), where op transposes its operand
// when the corresponding flag is set.
func Product(dim int, alpha float64, A, B Mat, transA, transB bool) (R Mat) {
	var (
		a, b float64
	)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			var sum float64
			for k := 0; k < dim; k++ {
				if transA {
					a = A[k][i]
				} else {
					a = A[i][k]
				}
				if transB {
					b = B[j][k]
				} else {
					b = B[k][j]
				}
				sum += a * b
			}
			R[i][j] = alpha * sum
		}
	}
	return
}

func Scale(dim int, s float64, M Mat) (R Mat) {
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			R[i][j] = s * M[i][j]
		}
	}
	return
}

// AddTo accumulates B into A
func AddTo(dim int, A *Mat, B Mat) {
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			A[i][j] += B[i][j]
		}
	}
}

func Transpose(dim int, M Mat) (R Mat) {
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			R[i][j] = M[j][i]
		}
	}
	return
}

// IsFinite reports whether every entry of the active block is finite
func IsFinite(dim int, M Mat) bool {
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			if math.IsNaN(M[i][j]) || math.IsInf(M[i][j], 0) {
				return false
			}
		}
	}
	return true
}
