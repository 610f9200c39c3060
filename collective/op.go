package collective

import (
	"fmt"
	"math"

	"github.com/hpcsim/topocoll/comm"
)

// FlopTime is the amount of virtual time it takes to perform a single
// floating-point operation.
const FlopTime = 1e-9

// An Op is a commutative, associative reduction operator applied
// element-wise across the ranks' buffers.
type Op int

const (
	OpSum Op = iota
	OpMax
	OpMin
	OpProd
)

func (o Op) String() string {
	switch o {
	case OpSum:
		return "sum"
	case OpMax:
		return "max"
	case OpMin:
		return "min"
	case OpProd:
		return "prod"
	default:
		return "invalid"
	}
}

// ParseOp converts an operator name, as used in scenario files, to an
// Op.
func ParseOp(s string) (Op, error) {
	switch s {
	case "sum":
		return OpSum, nil
	case "max":
		return OpMax, nil
	case "min":
		return OpMin, nil
	case "prod":
		return OpProd, nil
	}
	return 0, fmt.Errorf("operator %q: %w", s, ErrUnsupportedOperation)
}

// Valid reports whether the operator is one of the supported kinds.
func (o Op) Valid() bool {
	return o >= OpSum && o <= OpProd
}

// Combine folds src into dst element-wise. Both slices must have the
// same length and the operator must be valid.
func (o Op) Combine(dst, src []float64) {
	if len(dst) != len(src) {
		panic("collective: mismatching lengths")
	}
	switch o {
	case OpSum:
		for i, x := range src {
			dst[i] += x
		}
	case OpMax:
		for i, x := range src {
			dst[i] = math.Max(dst[i], x)
		}
	case OpMin:
		for i, x := range src {
			dst[i] = math.Min(dst[i], x)
		}
	case OpProd:
		for i, x := range src {
			dst[i] *= x
		}
	default:
		panic("collective: invalid operator")
	}
}

// combineTimed folds src into dst and charges the group's rank for the
// simulated computation time.
func combineTimed(g *comm.Group, op Op, dst, src []float64) {
	op.Combine(dst, src)
	g.Handle.Sleep(FlopTime * float64(len(dst)))
}
