package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

func names(params []ipxact.Parameter) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, p.Name)
	}
	return out
}

func TestSortParameters(t *testing.T) {
	for _, tc := range []struct {
		name   string
		params []ipxact.Parameter
		want   []string
	}{
		{
			name: "chain",
			params: []ipxact.Parameter{
				param("third", "id3", "id2 + 1"),
				param("second", "id2", "id1 * 2"),
				param("first", "id1", "4"),
			},
			want: []string{"first", "second", "third"},
		},
		{
			name: "independent keep order",
			params: []ipxact.Parameter{
				param("b", "idb", "1"),
				param("a", "ida", "2"),
				param("c", "idc", "3"),
			},
			want: []string{"b", "a", "c"},
		},
		{
			name: "shared dependency",
			params: []ipxact.Parameter{
				param("first", "id1", "1"),
				param("second", "id2", "id5"),
				param("third", "id3", "id1 + id2"),
				param("fourth", "id4", "2"),
				param("fifth", "id5", "id4"),
			},
			want: []string{"first", "fourth", "fifth", "second", "third"},
		},
		{
			name: "unknown references ignored",
			params: []ipxact.Parameter{
				param("a", "ida", "elsewhere + 1"),
				param("b", "idb", "$clog2(ida)"),
			},
			want: []string{"a", "b"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			in := append([]ipxact.Parameter(nil), tc.params...)
			got, err := SortParameters(tc.params)
			require.NoError(t, err)
			assert.Equal(t, tc.want, names(got))
			assert.Equal(t, in, tc.params)

			pos := make(map[string]int)
			for i, p := range got {
				pos[p.ValueID] = i
			}
			for i, p := range got {
				for id, j := range pos {
					if j > i {
						assert.NotContains(t, p.Value, id, "%s placed before %s", p.Name, id)
					}
				}
			}
		})
	}
}

func TestSortParametersCycle(t *testing.T) {
	_, err := SortParameters([]ipxact.Parameter{
		param("free", "id0", "1"),
		param("a", "ida", "idb + 1"),
		param("b", "idb", "ida - 1"),
	})
	require.ErrorIs(t, err, ipxact.ErrDependencyCycle)
	assert.Contains(t, err.Error(), "a, b")

	_, err = SortParameters([]ipxact.Parameter{param("self", "ids", "ids + 1")})
	assert.ErrorIs(t, err, ipxact.ErrDependencyCycle)
}
