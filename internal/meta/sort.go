package meta

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/expr"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

// SortParameters orders params so that each one follows every parameter
// whose value id its value references. Parameters with no ordering
// constraint between them keep their input order. The input is not modified.
func SortParameters(params []ipxact.Parameter) ([]ipxact.Parameter, error) {
	index := make(map[string]int, len(params))
	for i, p := range params {
		if p.ValueID != "" {
			index[p.ValueID] = i
		}
	}

	deps := make([][]int, len(params))
	pending := make([]int, len(params))
	dependents := make([][]int, len(params))
	for i, p := range params {
		seen := map[int]bool{}
		for _, ref := range expr.References(p.Value) {
			j, ok := index[ref]
			if !ok || seen[j] {
				continue
			}
			seen[j] = true
			deps[i] = append(deps[i], j)
			dependents[j] = append(dependents[j], i)
		}
		pending[i] = len(deps[i])
	}

	out := make([]ipxact.Parameter, 0, len(params))
	done := make([]bool, len(params))
	for len(out) < len(params) {
		next := -1
		for i := range params {
			if !done[i] && pending[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, cycleError(params, done)
		}
		done[next] = true
		out = append(out, params[next])
		for _, d := range dependents[next] {
			pending[d]--
		}
	}
	return out, nil
}

func cycleError(params []ipxact.Parameter, done []bool) error {
	var names []string
	for i, p := range params {
		if !done[i] {
			names = append(names, p.Name)
		}
	}
	return errors.Wrapf(ipxact.ErrDependencyCycle, "between %s", strings.Join(names, ", "))
}
