package ipxact

import "github.com/pkg/errors"

// Error kinds reported by reading and resolution. Wrapped errors keep the
// kind reachable through errors.Is.
var (
	ErrMalformedDocument          = errors.New("malformed document")
	ErrDanglingReference          = errors.New("dangling reference")
	ErrAmbiguousActiveView        = errors.New("ambiguous active view")
	ErrCircularReference          = errors.New("circular parameter reference")
	ErrDependencyCycle            = errors.New("parameter dependency cycle")
	ErrUnsupportedInterfaceMode   = errors.New("unsupported interface mode")
	ErrHierarchyTooDeep           = errors.New("hierarchy too deep")
	ErrCircularComponentReference = errors.New("circular component reference")
	ErrNoAbstractionType          = errors.New("bus interface has no abstraction type")
)
