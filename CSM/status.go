package CSM

import (
	"fmt"
)

// ElementStatus records whether an element was evaluated. A degenerate element
// keeps its row/col identifiers in the triplet output but its coefficients are
// left at zero.
type ElementStatus struct {
	Degenerate bool
	QuadPoint  int     // first quadrature point with detF <= 0
	DetF       float64 // detF at QuadPoint
}

func (es ElementStatus) String() string {
	if !es.Degenerate {
		return "ok"
	}
	return fmt.Sprintf("degenerate: detF = %g at quadrature point %d", es.DetF, es.QuadPoint)
}

// DegenerateElementError lists every inverted element of one evaluation.
// Results for the remaining elements are valid.
type DegenerateElementError struct {
	Elements []int
	Status   []ElementStatus // one per entry of Elements
}

func (e *DegenerateElementError) Error() string {
	first := e.Status[0]
	return fmt.Sprintf("CSM: %d degenerate element(s), element %d has detF = %g at quadrature point %d",
		len(e.Elements), e.Elements[0], first.DetF, first.QuadPoint)
}

func (e *DegenerateElementError) Unwrap() error { return ErrElementInversion }

func collectDegenerate(status []ElementStatus) (err error) {
	var (
		dee *DegenerateElementError
	)
	for ie, es := range status {
		if !es.Degenerate {
			continue
		}
		if dee == nil {
			dee = &DegenerateElementError{}
		}
		dee.Elements = append(dee.Elements, ie)
		dee.Status = append(dee.Status, es)
	}
	if dee != nil {
		err = dee
	}
	return
}
