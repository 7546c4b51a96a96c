package mesh

import (
	"fmt"

	"github.com/notargets/gocsm/tensor"
)

// Mesh is a linear simplex mesh: triangles in 2D, tetrahedra in 3D
type Mesh struct {
	Dim      int
	NumNodes int
	K        int              // Number of elements
	Nln      int              // Nodes per element, Dim+1
	X        []float64        // Node coordinates, component-major [d*NumNodes + n]
	EToV     []int            // Element to vertex map, 1-based, Nln per element
	Markers  map[string][]int // Boundary marker name to 0-based node indices, from mesh files
}

// Kuhn decomposition of the unit cube into six tetrahedra sharing the main
// diagonal. Corners are numbered by their bits: x + 2y + 4z.
var kuhnTets = [6][4]int{
	{0, 1, 3, 7},
	{0, 1, 5, 7},
	{0, 2, 3, 7},
	{0, 2, 6, 7},
	{0, 4, 5, 7},
	{0, 4, 6, 7},
}

// NewBox meshes [0,L0]x[0,L1](x[0,L2]) with divisions[d] cells per direction;
// every square is split in 2 triangles, every cube in 6 tetrahedra. All
// elements are oriented with a positive Jacobian.
func NewBox(dim int, divisions []int, lengths []float64) (m *Mesh, err error) {
	if dim != 2 && dim != 3 {
		err = fmt.Errorf("box mesh dimension must be 2 or 3, have %d", dim)
		return
	}
	if len(divisions) != dim || len(lengths) != dim {
		err = fmt.Errorf("need %d divisions and lengths, have %d and %d", dim, len(divisions), len(lengths))
		return
	}
	var (
		nv       [3]int // vertices per direction
		numCells = 1
	)
	nv[2] = 1
	for d := 0; d < dim; d++ {
		if divisions[d] < 1 || !(lengths[d] > 0) {
			err = fmt.Errorf("invalid box direction %d: divisions = %d, length = %v", d, divisions[d], lengths[d])
			return
		}
		nv[d] = divisions[d] + 1
		numCells *= divisions[d]
	}
	m = &Mesh{
		Dim:      dim,
		NumNodes: nv[0] * nv[1] * nv[2],
		Nln:      dim + 1,
	}
	m.X = make([]float64, dim*m.NumNodes)
	nodeIndex := func(i, j, k int) int { return i + nv[0]*(j+nv[1]*k) }
	for k := 0; k < nv[2]; k++ {
		for j := 0; j < nv[1]; j++ {
			for i := 0; i < nv[0]; i++ {
				n := nodeIndex(i, j, k)
				ijk := [3]int{i, j, k}
				for d := 0; d < dim; d++ {
					m.X[d*m.NumNodes+n] = lengths[d] * float64(ijk[d]) / float64(divisions[d])
				}
			}
		}
	}
	switch dim {
	case 2:
		m.K = 2 * numCells
		m.EToV = make([]int, 0, m.K*m.Nln)
		for j := 0; j < divisions[1]; j++ {
			for i := 0; i < divisions[0]; i++ {
				v0, v1 := nodeIndex(i, j, 0), nodeIndex(i+1, j, 0)
				v2, v3 := nodeIndex(i+1, j+1, 0), nodeIndex(i, j+1, 0)
				m.EToV = append(m.EToV, v0+1, v1+1, v2+1, v0+1, v2+1, v3+1)
			}
		}
	case 3:
		m.K = 6 * numCells
		m.EToV = make([]int, 0, m.K*m.Nln)
		for k := 0; k < divisions[2]; k++ {
			for j := 0; j < divisions[1]; j++ {
				for i := 0; i < divisions[0]; i++ {
					var corner [8]int
					for c := 0; c < 8; c++ {
						corner[c] = nodeIndex(i+(c&1), j+((c>>1)&1), k+((c>>2)&1))
					}
					for _, tet := range kuhnTets {
						for _, c := range tet {
							m.EToV = append(m.EToV, corner[c]+1)
						}
					}
				}
			}
		}
	}
	m.orient()
	return
}

// orient swaps the last two vertices of every element with a negative Jacobian
func (m *Mesh) orient() {
	for ie := 0; ie < m.K; ie++ {
		if _, det := m.ElementJacobian(ie); det < 0 {
			ev := m.EToV[ie*m.Nln : (ie+1)*m.Nln]
			ev[m.Dim-1], ev[m.Dim] = ev[m.Dim], ev[m.Dim-1]
		}
	}
}

// ElementJacobian returns J[i][k] = dx_i/dξ_k of the affine map from the
// reference simplex to element ie, and its determinant.
func (m *Mesh) ElementJacobian(ie int) (J tensor.Mat, det float64) {
	var (
		dim = m.Dim
		ev  = m.EToV[ie*m.Nln : (ie+1)*m.Nln]
	)
	for i := 0; i < dim; i++ {
		x0 := m.X[i*m.NumNodes+ev[0]-1]
		for k := 0; k < dim; k++ {
			J[i][k] = m.X[i*m.NumNodes+ev[k+1]-1] - x0
		}
	}
	det = tensor.Determinant(dim, J)
	return
}

// GeometricFactors returns, per element, InvJac[ie*Dim*Dim + dir*Dim + k] =
// dξ_k/dx_dir and the Jacobian determinant.
func (m *Mesh) GeometricFactors() (InvJac, DetJac []float64, err error) {
	var (
		dim = m.Dim
	)
	InvJac = make([]float64, m.K*dim*dim)
	DetJac = make([]float64, m.K)
	for ie := 0; ie < m.K; ie++ {
		J, det := m.ElementJacobian(ie)
		if !(det > 0) {
			err = fmt.Errorf("element %d has non positive Jacobian %g", ie, det)
			return
		}
		// (J^-1)[k][dir] = (J^-T)[dir][k]
		JinvT := tensor.InverseTranspose(dim, J)
		for dir := 0; dir < dim; dir++ {
			for k := 0; k < dim; k++ {
				InvJac[ie*dim*dim+dir*dim+k] = JinvT[dir][k]
			}
		}
		DetJac[ie] = det
	}
	return
}

// AffineDisplacement samples u(x) = G x at the nodes, component-major
func (m *Mesh) AffineDisplacement(G tensor.Mat) (U []float64) {
	var (
		dim = m.Dim
	)
	U = make([]float64, dim*m.NumNodes)
	for n := 0; n < m.NumNodes; n++ {
		for i := 0; i < dim; i++ {
			var sum float64
			for j := 0; j < dim; j++ {
				sum += G[i][j] * m.X[j*m.NumNodes+n]
			}
			U[i*m.NumNodes+n] = sum
		}
	}
	return
}

// BoundaryNodes returns the 0-based indices of nodes on the box surface
func (m *Mesh) BoundaryNodes(lengths []float64) (nodes []int) {
	const tol = 1.e-12
	for n := 0; n < m.NumNodes; n++ {
		for d := 0; d < m.Dim; d++ {
			x := m.X[d*m.NumNodes+n]
			if x < tol || x > lengths[d]-tol {
				nodes = append(nodes, n)
				break
			}
		}
	}
	return
}
