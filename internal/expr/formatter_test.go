package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	f := NewFormatter(ListFinder{
		{Name: "width", ValueID: "uuid_width", Value: "8"},
		{Name: "depth", ValueID: "uuid_depth", Value: "16"},
	})
	tests := []struct {
		in, want string
	}{
		{"uuid_width", "width"},
		{"uuid_width * uuid_depth - 1", "width * depth - 1"},
		{"$clog2(uuid_depth)", "$clog2(depth)"},
		{"8'hFF + uuid_width", "8'hFF + width"},
		{`"uuid_width"`, `"uuid_width"`},
		{"width", "width"},
		{"unknown", "unknown"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, f.Format(tc.in), tc.in)
	}

	assert.Equal(t, "uuid_width", NewFormatter(nil).Format("uuid_width"))
}

func TestReferences(t *testing.T) {
	assert.Equal(t, []string{"uuid_a", "uuid_b"}, References("uuid_b + $clog2(uuid_a) * uuid_b"))
	assert.Equal(t, []string{"uuid_a"}, References("uuid_a-1"))
	assert.Equal(t, []string{"a", "id", "id-a"}, References("id-a + 1"))
	assert.Empty(t, References("8'hFF + 3"))
	assert.Empty(t, References(""))
	assert.Empty(t, References("true ? 1 : 0"))
	// unparseable text still yields its identifiers
	assert.Equal(t, []string{"uuid_a"}, References("uuid_a +"))
}

func TestReferencesAny(t *testing.T) {
	ids := map[string]bool{"uuid_a": true}
	assert.True(t, ReferencesAny("uuid_a * 2", ids))
	assert.False(t, ReferencesAny("uuid_b * 2", ids))
}

func TestCalledFunctions(t *testing.T) {
	assert.Equal(t, []string{"clog2", "pow"}, CalledFunctions("$pow(2, $clog2(x))"))
	assert.Empty(t, CalledFunctions("1 +"))
	assert.Equal(t, []string{"pow", "shiftleft"}, CalledFunctions("1 << 2 ** 3"))
}
