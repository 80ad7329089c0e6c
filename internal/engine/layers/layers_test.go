package layers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_LongestPatternWins(t *testing.T) {
	r, err := NewResolver([]Layer{
		{Name: "Application", Paths: []string{"internal/app"}},
		{Name: "Domain", Paths: []string{"internal/app/domain"}},
		{Name: "API", Paths: []string{"cmd/**", "internal/http/*"}},
	})
	require.NoError(t, err)

	cases := map[string]string{
		"internal/app":                "Application",
		"internal/app/orders":         "Application",
		"internal/app/domain":         "Domain",
		"internal/app/domain/order":   "Domain",
		"internal/application":        "",
		"cmd/server/main":             "API",
		"internal/http/handlers":      "API",
		"internal/http/handlers/deep": "",
		"./internal/app/orders/":      "Application",
	}
	for key, want := range cases {
		assert.Equal(t, want, r.Resolve(key), key)
	}
}

func TestResolver_DottedNamespaces(t *testing.T) {
	r, err := NewResolver([]Layer{
		{Name: "Domain", Paths: []string{"Domain"}},
		{Name: "Application", Paths: []string{"Application"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Domain", r.Resolve("Domain.Abstractions.IUnitOfWork"))
	assert.Equal(t, "Application", r.Resolve("Application"))
	assert.Equal(t, "", r.Resolve("DomainEvents.Bus"))
}

func TestResolver_TiesBreakByName(t *testing.T) {
	r, err := NewResolver([]Layer{
		{Name: "b", Paths: []string{"pkg/x"}},
		{Name: "a", Paths: []string{"pkg/x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "a", r.Resolve("pkg/x/y"))
}

func TestResolver_Errors(t *testing.T) {
	_, err := NewResolver([]Layer{{Name: "", Paths: []string{"x"}}})
	assert.Error(t, err)

	_, err = NewResolver([]Layer{{Name: "x", Paths: []string{"a/[b"}}})
	assert.Error(t, err)

	var nilResolver *Resolver
	assert.Equal(t, "", nilResolver.Resolve("anything"))
}
