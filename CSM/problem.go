package CSM

import (
	"errors"
	"fmt"

	"github.com/notargets/gocsm/material"
	"github.com/notargets/gocsm/utils"
)

var (
	ErrDimension        = errors.New("CSM: spatial dimension must be 2 or 3")
	ErrInputShape       = errors.New("CSM: input arrays inconsistent with dimension, nodes per element or element count")
	ErrElementInversion = errors.New("CSM: element inversion, detF <= 0")
)

// Connectivity is the element to node table. Each element owns RowsPerElement
// consecutive entries, the first Nln of which are 1-based global node indices;
// any trailing rows (region tags and the like) are ignored.
type Connectivity struct {
	Elements       []int
	RowsPerElement int
	Nln            int
}

// Quadrature holds the reference basis tabulated at the quadrature points,
// shared by all elements.
type Quadrature struct {
	Weights    []float64 // [NumQuadPoints]
	Phi        []float64 // [k*NumQuadPoints + q]
	GradRefPhi []float64 // [(k*NumQuadPoints + q)*Dim + d]
}

// Geometry holds the per element geometric factors. InvJac maps reference
// gradients to physical ones: grad_dir(phi) = sum_k InvJac[dir][k] * dphi/dξ_k.
type Geometry struct {
	InvJac []float64 // [ie*Dim*Dim + dir*Dim + k]
	DetJac []float64 // [NumElements]
}

// Problem is the read-only context shared by every element evaluation
type Problem struct {
	Dim      int
	Material *material.NeoHookean
	U        []float64 // component-major, [comp*NumNodes + node]
	Mesh     Connectivity
	Quad     Quadrature
	Geom     Geometry
	// derived
	NumNodes, NumElements, NumQuadPoints int
	Partitions                           *utils.PartitionMap
}

// NewProblem checks every input against the dimension, element count and
// quadrature size before any element is touched. ProcLimit = 0 uses one go
// routine per CPU.
func NewProblem(dim int, nh *material.NeoHookean, U []float64, mesh Connectivity,
	quad Quadrature, geom Geometry, ProcLimit int) (p *Problem, err error) {
	if dim != 2 && dim != 3 {
		err = fmt.Errorf("have dim = %d: %w", dim, ErrDimension)
		return
	}
	if nh == nil {
		err = fmt.Errorf("no material supplied: %w", ErrInputShape)
		return
	}
	p = &Problem{
		Dim:      dim,
		Material: nh,
		Mesh:     mesh,
		Quad:     quad,
		Geom:     geom,
	}
	shapeErr := func(format string, args ...any) error {
		return fmt.Errorf(format+": %w", append(args, ErrInputShape)...)
	}
	switch {
	case mesh.Nln < 1 || mesh.RowsPerElement < mesh.Nln:
		err = shapeErr("have Nln = %d, RowsPerElement = %d", mesh.Nln, mesh.RowsPerElement)
	case len(mesh.Elements) == 0 || len(mesh.Elements)%mesh.RowsPerElement != 0:
		err = shapeErr("connectivity length %d is not a positive multiple of %d",
			len(mesh.Elements), mesh.RowsPerElement)
	case len(quad.Weights) == 0:
		err = shapeErr("no quadrature points")
	}
	if err != nil {
		return nil, err
	}
	p.NumElements = len(mesh.Elements) / mesh.RowsPerElement
	p.NumQuadPoints = len(quad.Weights)
	var (
		nq, nln, K = p.NumQuadPoints, mesh.Nln, p.NumElements
	)
	switch {
	case len(quad.Phi) != nln*nq:
		err = shapeErr("len(Phi) = %d, want %d", len(quad.Phi), nln*nq)
	case len(quad.GradRefPhi) != nln*nq*dim:
		err = shapeErr("len(GradRefPhi) = %d, want %d", len(quad.GradRefPhi), nln*nq*dim)
	case len(geom.InvJac) != K*dim*dim:
		err = shapeErr("len(InvJac) = %d, want %d", len(geom.InvJac), K*dim*dim)
	case len(geom.DetJac) != K:
		err = shapeErr("len(DetJac) = %d, want %d", len(geom.DetJac), K)
	}
	if err != nil {
		return nil, err
	}
	if err = p.setDisplacement(U); err != nil {
		return nil, err
	}
	for ie := 0; ie < K; ie++ {
		for k := 0; k < nln; k++ {
			if node := p.node(ie, k); node < 1 || node > p.NumNodes {
				return nil, shapeErr("element %d references node %d, have %d nodes", ie, node, p.NumNodes)
			}
		}
	}
	p.Partitions = utils.NewPartitionMap(utils.ParallelDegree(ProcLimit, K), K)
	return
}

func (p *Problem) setDisplacement(U []float64) (err error) {
	if len(U) == 0 || len(U)%p.Dim != 0 {
		return fmt.Errorf("displacement length %d is not a positive multiple of dim = %d: %w",
			len(U), p.Dim, ErrInputShape)
	}
	if p.NumNodes != 0 && len(U) != p.NumNodes*p.Dim {
		return fmt.Errorf("displacement length %d, want %d: %w", len(U), p.NumNodes*p.Dim, ErrInputShape)
	}
	p.U = U
	p.NumNodes = len(U) / p.Dim
	return
}

// WithDisplacement returns a Problem sharing every table of p except the
// displacement field.
func (p *Problem) WithDisplacement(U []float64) (pNew *Problem, err error) {
	pp := *p
	if err = pp.setDisplacement(U); err != nil {
		return
	}
	pNew = &pp
	return
}

// NumDOF is the size of the global system
func (p *Problem) NumDOF() int { return p.NumNodes * p.Dim }

// node returns the 1-based global index of local node k of element ie
func (p *Problem) node(ie, k int) int {
	return p.Mesh.Elements[ie*p.Mesh.RowsPerElement+k]
}

// DOF returns the 1-based global degree of freedom of component comp at local
// node k of element ie.
func (p *Problem) DOF(ie, k, comp int) int {
	return p.node(ie, k) + comp*p.NumNodes
}
