package codebase

import (
	"testing"

	"layercheck/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsDuplicateIDs(t *testing.T) {
	_, err := New(
		ModuleUnit{ID: "Domain.Order", Tag: "Domain"},
		ModuleUnit{ID: "Domain.Order", Tag: "Domain"},
	)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestNew_RejectsEmptyID(t *testing.T) {
	_, err := New(ModuleUnit{ID: "  "})
	require.Error(t, err)
}

func TestNew_NormalizesDependencies(t *testing.T) {
	cb, err := New(ModuleUnit{ID: "a", Dependencies: []string{"z", "b", "z", " ", "b"}})
	require.NoError(t, err)

	u, ok := cb.Unit("a")
	require.True(t, ok)
	assert.Equal(t, []string{"b", "z"}, u.Dependencies)
	assert.True(t, u.DependsOn("z"))
	assert.False(t, u.DependsOn("c"))
}

func TestCodebase_IsImmutable(t *testing.T) {
	deps := []string{"x"}
	cb := MustNew(ModuleUnit{ID: "a", Dependencies: deps})
	deps[0] = "mutated"

	u, _ := cb.Unit("a")
	assert.Equal(t, []string{"x"}, u.Dependencies)

	u.Dependencies[0] = "mutated"
	again, _ := cb.Unit("a")
	assert.Equal(t, []string{"x"}, again.Dependencies)

	units := cb.Units()
	units[0].Tag = "changed"
	tag, ok := cb.TagOf("a")
	assert.True(t, ok)
	assert.Equal(t, "", tag)
}

func TestCodebase_OrderAndLookup(t *testing.T) {
	cb := MustNew(
		ModuleUnit{ID: "B", Tag: "Application", Dependencies: []string{"A"}},
		ModuleUnit{ID: "A", Tag: "Domain"},
		ModuleUnit{ID: "C", Tag: "Domain", Dependencies: []string{"fmt"}},
	)

	ids := make([]string, 0, cb.Len())
	for _, u := range cb.Units() {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"B", "A", "C"}, ids)
	assert.Equal(t, []string{"Application", "Domain"}, cb.Tags())
	assert.Equal(t, 2, cb.EdgeCount())

	_, ok := cb.TagOf("fmt")
	assert.False(t, ok)
}

func TestShortName(t *testing.T) {
	cases := map[string]string{
		"Application.Orders.OrderHandler":       "OrderHandler",
		"example.com/app/internal/api.OrderCtl": "OrderCtl",
		"Plain":                                 "Plain",
		"github.com/acme/lib":                   "lib",
	}
	for in, want := range cases {
		assert.Equal(t, want, ShortName(in), in)
	}
}

func TestNilCodebase(t *testing.T) {
	var cb *Codebase
	assert.Equal(t, 0, cb.Len())
	assert.Nil(t, cb.Units())
	_, ok := cb.Unit("x")
	assert.False(t, ok)
}
