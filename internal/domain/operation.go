package domain

import "strings"

// Operation is a reduction applied to a subset of the grid.
type Operation int

const (
	// OpMean collapses an axis with the arithmetic mean.
	OpMean Operation = iota
	// OpMin selects the cell holding the global minimum.
	OpMin
	// OpMax selects the cell holding the global maximum.
	OpMax
)

// String returns the lower-case operation name used in URLs.
func (o Operation) String() string {
	switch o {
	case OpMean:
		return "mean"
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	default:
		return "unknown"
	}
}

// ParseOperation maps an operation name to an Operation.
func ParseOperation(name string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mean":
		return OpMean, nil
	case "min":
		return OpMin, nil
	case "max":
		return OpMax, nil
	default:
		names := make([]string, 0, len(AllOperations()))
		for _, op := range AllOperations() {
			names = append(names, op.String())
		}
		return 0, InputErrorf("unknown operation %q (expected one of %s)", name, strings.Join(names, ", "))
	}
}

// AllOperations lists the supported operations in display order.
func AllOperations() []Operation {
	return []Operation{OpMean, OpMin, OpMax}
}
