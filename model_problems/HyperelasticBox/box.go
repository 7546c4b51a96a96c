package HyperelasticBox

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/notargets/gocsm/CSM"
	"github.com/notargets/gocsm/InputParameters"
	"github.com/notargets/gocsm/assembly"
	"github.com/notargets/gocsm/material"
	"github.com/notargets/gocsm/mesh"
	"github.com/notargets/gocsm/tensor"
	"github.com/notargets/gocsm/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Box is a structured block of linear simplices under a prescribed
// displacement field, evaluated with the compressible Neo-Hookean law.
type Box struct {
	Case    *InputParameters.CaseParameters
	Mesh    *mesh.Mesh
	Rule    *mesh.Rule
	Problem *CSM.Problem
}

func NewBox(cp *InputParameters.CaseParameters, ProcLimit int) (b *Box, err error) {
	var (
		nh           *material.NeoHookean
		Phi, GradRef []float64
		InvJ, DetJ   []float64
	)
	b = &Box{Case: cp}
	if nh, err = material.NewNeoHookean(cp.Young, cp.Poisson); err != nil {
		return
	}
	if cp.MeshFile != "" {
		if b.Mesh, err = mesh.ReadSU2File(cp.MeshFile, false); err != nil {
			return
		}
		if b.Mesh.Dim != cp.Dimension {
			err = fmt.Errorf("mesh file %s is %dD, case is %dD", cp.MeshFile, b.Mesh.Dim, cp.Dimension)
			return
		}
	} else if b.Mesh, err = mesh.NewBox(cp.Dimension, cp.Divisions, cp.Lengths); err != nil {
		return
	}
	if b.Rule, err = mesh.NewQuadrature(cp.Dimension, cp.QuadratureOrder); err != nil {
		return
	}
	Phi, GradRef = mesh.TabulateP1(b.Rule)
	if InvJ, DetJ, err = b.Mesh.GeometricFactors(); err != nil {
		return
	}
	if cp.ParallelDegree != 0 {
		ProcLimit = cp.ParallelDegree
	}
	b.Problem, err = CSM.NewProblem(cp.Dimension, nh, b.Displacement(),
		CSM.Connectivity{Elements: b.Mesh.EToV, RowsPerElement: b.Mesh.Nln, Nln: b.Mesh.Nln},
		CSM.Quadrature{Weights: b.Rule.Weights, Phi: Phi, GradRefPhi: GradRef},
		CSM.Geometry{InvJac: InvJ, DetJac: DetJ},
		ProcLimit)
	return
}

// Displacement is the affine field of the case plus the seeded nodal noise
func (b *Box) Displacement() (U []float64) {
	var G tensor.Mat
	for i, row := range b.Case.DisplacementGradient {
		for j, v := range row {
			G[i][j] = v
		}
	}
	U = b.Mesh.AffineDisplacement(G)
	if b.Case.Perturbation != 0 {
		AddNoise(U, b.Case.Perturbation, b.Case.Seed)
	}
	return
}

// AddNoise adds uniform noise in [-amp, amp) to every entry of U
func AddNoise(U []float64, amp float64, seed int64) {
	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	for i := range U {
		U[i] += amp * (2*rng.Float64() - 1)
	}
}

// Report holds the outcome of evaluating the requested operations
type Report struct {
	ResidualNorm   float64
	InteriorNorm   float64 // residual norm over DOFs of interior nodes
	SymmetryDefect float64
	MaxStress      float64
	Degenerate     []int
	Timings        map[string]time.Duration
}

// Run evaluates the operations of the case, assembles the results and
// returns the report. Element inversion is reported in Report.Degenerate and
// as the returned error.
func (b *Box) Run(verbose bool) (rep *Report, err error) {
	var (
		p      = b.Problem
		runErr error
	)
	rep = &Report{Timings: make(map[string]time.Duration)}
	if verbose {
		fmt.Printf("Compressible Neo-Hookean in %d dimensions\n", p.Dim)
		fmt.Printf("%s\n", p.Material)
		pm := p.Partitions
		fmt.Printf("Using %d go routines in parallel, %d to %d elements each\n", pm.ParallelDegree,
			pm.GetBucketDimension(pm.ParallelDegree-1), pm.GetBucketDimension(0))
		fmt.Printf("Num Elements K = %d, Nodes = %d, Quadrature Points = %d\n\n",
			p.NumElements, p.NumNodes, p.NumQuadPoints)
	}
	note := func(e error) {
		if e == nil {
			return
		}
		var dee *CSM.DegenerateElementError
		if errors.As(e, &dee) && rep.Degenerate == nil {
			rep.Degenerate = dee.Elements
		}
		if runErr == nil {
			runErr = e
		}
	}
	if b.Case.HasOperation(InputParameters.OpForces) {
		start := time.Now()
		res, e := p.Forces()
		rep.Timings[InputParameters.OpForces] = time.Since(start)
		note(e)
		var F []float64
		if F, err = assembly.Vector(p.NumDOF(), res.Rows, res.Coef); err != nil {
			return
		}
		rep.ResidualNorm = floats.Norm(F, 2)
		rep.InteriorNorm = b.interiorNorm(F)
	}
	if b.Case.HasOperation(InputParameters.OpJacobian) {
		start := time.Now()
		res, e := p.Jacobian()
		rep.Timings[InputParameters.OpJacobian] = time.Since(start)
		note(e)
		K, e := assembly.Matrix(p.NumDOF(), res.Rows, res.Cols, res.Coef)
		if e != nil {
			err = e
			return
		}
		rep.SymmetryDefect = assembly.SymmetryDefect(K)
	}
	if b.Case.HasOperation(InputParameters.OpStress) {
		start := time.Now()
		res, e := p.Stress()
		rep.Timings[InputParameters.OpStress] = time.Since(start)
		note(e)
		rep.MaxStress = math.Max(mat.Max(res.Sigma), -mat.Min(res.Sigma))
	}
	if verbose {
		b.Print(rep)
	}
	err = runErr
	return
}

func (b *Box) interiorNorm(F []float64) float64 {
	var (
		p        = b.Problem
		boundary = make([]bool, p.NumNodes)
		sum      float64
	)
	for _, n := range b.boundaryNodes() {
		boundary[n] = true
	}
	for comp := 0; comp < p.Dim; comp++ {
		for n := 0; n < p.NumNodes; n++ {
			if !boundary[n] {
				f := F[comp*p.NumNodes+n]
				sum += f * f
			}
		}
	}
	return math.Sqrt(sum)
}

// boundaryNodes are the box surface, or every marker of a mesh file
func (b *Box) boundaryNodes() (nodes []int) {
	if b.Case.MeshFile == "" {
		return b.Mesh.BoundaryNodes(b.Case.Lengths)
	}
	seen := make(map[int]bool)
	for _, marker := range b.Mesh.Markers {
		for _, n := range marker {
			if !seen[n] {
				seen[n] = true
				nodes = append(nodes, n)
			}
		}
	}
	return
}

func (b *Box) Print(rep *Report) {
	for _, op := range b.Case.Operations {
		fmt.Printf("%-10s %v\n", op, rep.Timings[op])
	}
	if b.Case.HasOperation(InputParameters.OpForces) {
		fmt.Printf("Residual norm = %12.5e, interior residual norm = %12.5e\n", rep.ResidualNorm, rep.InteriorNorm)
	}
	if b.Case.HasOperation(InputParameters.OpJacobian) {
		fmt.Printf("Tangent symmetry defect = %12.5e\n", rep.SymmetryDefect)
	}
	if b.Case.HasOperation(InputParameters.OpStress) {
		fmt.Printf("Max |P| = %12.5e\n", rep.MaxStress)
	}
	if len(rep.Degenerate) != 0 {
		fmt.Printf("Degenerate elements: %v\n", rep.Degenerate)
	}
	fmt.Printf("%s\n", utils.GetMemUsage())
}

// VerifyTangent checks the consistent tangent against forward differences of
// the residual along a seeded random direction, one relative error per step.
func (b *Box) VerifyTangent(steps []float64, seed int64, verbose bool) (relErr []float64, err error) {
	var (
		p = b.Problem
		V = make([]float64, len(p.U))
	)
	AddNoise(V, 1, seed)
	relErr = make([]float64, len(steps))
	for i, eps := range steps {
		if relErr[i], err = p.CheckTangent(V, eps); err != nil {
			return
		}
		if verbose {
			fmt.Printf("eps = %8.1e, |dF/eps - K V| / |K V| = %12.5e\n", eps, relErr[i])
		}
	}
	return
}
