// Package assembly scatter-adds element triplets into global vectors and
// sparse matrices. Row and column identifiers are 1-based global degrees of
// freedom, as produced by the CSM element kernels; duplicates are summed.
package assembly

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats"
)

func Vector(numDOF int, rows []int, coef []float64) (F []float64, err error) {
	if len(rows) != len(coef) {
		err = fmt.Errorf("mismatch in triplet lengths: len(rows) = %d, len(coef) = %d", len(rows), len(coef))
		return
	}
	F = make([]float64, numDOF)
	for i, r := range rows {
		if r < 1 || r > numDOF {
			err = fmt.Errorf("row %d out of range [1, %d]", r, numDOF)
			return
		}
		F[r-1] += coef[i]
	}
	return
}

func Matrix(numDOF int, rows, cols []int, coef []float64) (K *sparse.CSR, err error) {
	if len(rows) != len(coef) || len(cols) != len(coef) {
		err = fmt.Errorf("mismatch in triplet lengths: len(rows) = %d, len(cols) = %d, len(coef) = %d",
			len(rows), len(cols), len(coef))
		return
	}
	dok := sparse.NewDOK(numDOF, numDOF)
	for n, c := range coef {
		i, j := rows[n]-1, cols[n]-1
		if i < 0 || i >= numDOF || j < 0 || j >= numDOF {
			err = fmt.Errorf("entry (%d, %d) out of range [1, %d]", rows[n], cols[n], numDOF)
			return
		}
		dok.Set(i, j, dok.At(i, j)+c)
	}
	K = dok.ToCSR()
	return
}

// MulVec returns K*x
func MulVec(K *sparse.CSR, x []float64) (y []float64) {
	nr, _ := K.Dims()
	y = make([]float64, nr)
	K.DoNonZero(func(i, j int, v float64) {
		y[i] += v * x[j]
	})
	return
}

// SymmetryDefect is max|K_ij - K_ji| relative to max|K_ij|
func SymmetryDefect(K *sparse.CSR) (defect float64) {
	var (
		maxAbs float64
	)
	K.DoNonZero(func(i, j int, v float64) {
		maxAbs = math.Max(maxAbs, math.Abs(v))
		defect = math.Max(defect, math.Abs(v-K.At(j, i)))
	})
	if maxAbs != 0 {
		defect /= maxAbs
	}
	return
}

// RelativeError is ||a - b|| / ||b||, or ||a - b|| when b vanishes
func RelativeError(a, b []float64) float64 {
	diff := make([]float64, len(a))
	floats.SubTo(diff, a, b)
	nb := floats.Norm(b, 2)
	if nb == 0 {
		return floats.Norm(diff, 2)
	}
	return floats.Norm(diff, 2) / nb
}
