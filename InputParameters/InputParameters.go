package InputParameters

import (
	"fmt"
	"strings"

	"github.com/ghodss/yaml"
)

// CaseParameters are obtained from the YAML case file. ghodss/yaml routes
// through encoding/json, hence the json tags.
type CaseParameters struct {
	Title                string      `json:"Title"`
	Dimension            int         `json:"Dimension"`
	Young                float64     `json:"Young"`
	Poisson              float64     `json:"Poisson"`
	Divisions            []int       `json:"Divisions"`
	Lengths              []float64   `json:"Lengths"`
	MeshFile             string      `json:"MeshFile"` // SU2 mesh, replaces the box when set
	QuadratureOrder      int         `json:"QuadratureOrder"`
	DisplacementGradient [][]float64 `json:"DisplacementGradient"` // Affine displacement u = G x
	Perturbation         float64     `json:"Perturbation"`         // Amplitude of random nodal noise added to u
	Seed                 int64       `json:"Seed"`
	ParallelDegree       int         `json:"ParallelDegree"` // 0 = one go routine per CPU
	Operations           []string    `json:"Operations"`     // any of forces, jacobian, stress
}

const (
	OpForces   = "forces"
	OpJacobian = "jacobian"
	OpStress   = "stress"
)

const ExampleFile = `
########################################
Title: "Stretched block"
Dimension: 3
Young: 1.
Poisson: 0.3
Divisions: [4, 4, 4]
Lengths: [1., 1., 1.]
QuadratureOrder: 2
DisplacementGradient:
  - [0.1, 0., 0.]
  - [0., -0.03, 0.]
  - [0., 0., -0.03]
Perturbation: 0.001
Operations: [forces, jacobian, stress]
########################################
`

func (cp *CaseParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, cp); err != nil {
		return
	}
	return cp.setDefaults()
}

func (cp *CaseParameters) setDefaults() (err error) {
	if cp.QuadratureOrder == 0 {
		cp.QuadratureOrder = 1
	}
	if len(cp.Operations) == 0 {
		cp.Operations = []string{OpForces, OpJacobian, OpStress}
	}
	for i, op := range cp.Operations {
		op = strings.ToLower(strings.TrimSpace(op))
		switch op {
		case OpForces, OpJacobian, OpStress:
		default:
			return fmt.Errorf("unknown operation %q, want one of %s, %s, %s", op, OpForces, OpJacobian, OpStress)
		}
		cp.Operations[i] = op
	}
	if len(cp.DisplacementGradient) > cp.Dimension {
		return fmt.Errorf("displacement gradient has %d rows, dimension is %d",
			len(cp.DisplacementGradient), cp.Dimension)
	}
	for _, row := range cp.DisplacementGradient {
		if len(row) > cp.Dimension {
			return fmt.Errorf("displacement gradient row %v is longer than dimension %d", row, cp.Dimension)
		}
	}
	return
}

func (cp *CaseParameters) HasOperation(op string) bool {
	for _, o := range cp.Operations {
		if o == op {
			return true
		}
	}
	return false
}

func (cp *CaseParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", cp.Title)
	fmt.Printf("[%d]\t\t\t= Dimension\n", cp.Dimension)
	fmt.Printf("%8.5g\t\t= Young\n", cp.Young)
	fmt.Printf("%8.5f\t\t= Poisson\n", cp.Poisson)
	if cp.MeshFile != "" {
		fmt.Printf("[%s]\t= Mesh File\n", cp.MeshFile)
	} else {
		fmt.Printf("%v\t\t= Divisions\n", cp.Divisions)
		fmt.Printf("%v\t\t= Lengths\n", cp.Lengths)
	}
	fmt.Printf("[%d]\t\t\t= Quadrature Order\n", cp.QuadratureOrder)
	fmt.Printf("%v\t= Displacement Gradient\n", cp.DisplacementGradient)
	fmt.Printf("%8.5g\t\t= Perturbation\n", cp.Perturbation)
	fmt.Printf("%v\t= Operations\n", cp.Operations)
}
