package rules

import (
	"context"
	"fmt"
	"testing"

	"layercheck/internal/engine/codebase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func forbid(t *testing.T, subject Filter, targets ...string) Rule {
	t.Helper()
	r, err := NewForbidDependency("", subject, targets...)
	require.NoError(t, err)
	return r
}

func requireDep(t *testing.T, subject Filter, target string) Rule {
	t.Helper()
	r, err := NewRequireDependency("", subject, target)
	require.NoError(t, err)
	return r
}

func TestForbidDependency_DomainExample(t *testing.T) {
	rule := forbid(t, MustTag("Domain"), "Application")

	clean := codebase.MustNew(
		codebase.ModuleUnit{ID: "A", Tag: "Domain"},
		codebase.ModuleUnit{ID: "B", Tag: "Application", Dependencies: []string{"A"}},
	)
	res := Evaluate(clean, rule)
	assert.True(t, res.Success)
	assert.Empty(t, res.Violators)
	assert.Equal(t, 1, res.Subjects)

	dirty := codebase.MustNew(
		codebase.ModuleUnit{ID: "A", Tag: "Domain", Dependencies: []string{"B"}},
		codebase.ModuleUnit{ID: "B", Tag: "Application", Dependencies: []string{"A"}},
	)
	res = Evaluate(dirty, rule)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"A"}, res.Violators)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, []string{"B"}, res.Findings[0].Offending)
}

func TestForbidDependency_CollectsAllViolators(t *testing.T) {
	cb := codebase.MustNew(
		codebase.ModuleUnit{ID: "Domain.Order", Tag: "Domain", Dependencies: []string{"Infrastructure.Db"}},
		codebase.ModuleUnit{ID: "Domain.Invoice", Tag: "Domain"},
		codebase.ModuleUnit{ID: "Domain.Customer", Tag: "Domain", Dependencies: []string{"Api.Startup", "Domain.Order"}},
		codebase.ModuleUnit{ID: "Infrastructure.Db", Tag: "Infrastructure"},
		codebase.ModuleUnit{ID: "Api.Startup", Tag: "API"},
	)
	res := Evaluate(cb, forbid(t, MustTag("Domain"), "Application", "Infrastructure", "API"))

	assert.False(t, res.Success)
	assert.Equal(t, []string{"Domain.Order", "Domain.Customer"}, res.Violators)
	assert.Equal(t, []string{"Api.Startup"}, res.Findings[1].Offending)
	assert.Equal(t, 3, res.Subjects)
}

func TestForbidDependency_AddingOneMatchingDependencyFlipsResult(t *testing.T) {
	rule := forbid(t, MustTag("Domain"), "Infrastructure")
	base := []codebase.ModuleUnit{
		{ID: "d1", Tag: "Domain", Dependencies: []string{"d2", "fmt"}},
		{ID: "d2", Tag: "Domain"},
		{ID: "i1", Tag: "Infrastructure"},
	}
	res := Evaluate(codebase.MustNew(base...), rule)
	require.True(t, res.Success)

	base[1].Dependencies = []string{"i1"}
	res = Evaluate(codebase.MustNew(base...), rule)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"d2"}, res.Violators)
}

func TestForbidDependency_ExternalLibraryByIdentifier(t *testing.T) {
	cb := codebase.MustNew(
		codebase.ModuleUnit{ID: "Domain.Order", Tag: "Domain", Dependencies: []string{"gorm.io/gorm"}},
		codebase.ModuleUnit{ID: "Domain.Line", Tag: "Domain", Dependencies: []string{"gorm.io/gorm/clause"}},
	)
	res := Evaluate(cb, forbid(t, MustTag("Domain"), "gorm.io/gorm"))
	assert.Equal(t, []string{"Domain.Order"}, res.Violators)
}

func TestForbidDependency_UntaggedDependencyDoesNotMatchEmptyTag(t *testing.T) {
	cb := codebase.MustNew(
		codebase.ModuleUnit{ID: "a", Tag: "Domain", Dependencies: []string{"b"}},
		codebase.ModuleUnit{ID: "b"},
	)
	res := Evaluate(cb, forbid(t, MustTag("Domain"), "Application"))
	assert.True(t, res.Success)
}

func TestRequireDependency_HandlerExample(t *testing.T) {
	rule := requireDep(t, MustNameSuffix("Handler"), "Domain")

	ok := codebase.MustNew(
		codebase.ModuleUnit{ID: "Domain.Order", Tag: "Domain"},
		codebase.ModuleUnit{ID: "Application.OrderHandler", Tag: "Application", Dependencies: []string{"Domain.Order"}},
	)
	res := Evaluate(ok, rule)
	assert.True(t, res.Success)

	bad := codebase.MustNew(
		codebase.ModuleUnit{ID: "Domain.Order", Tag: "Domain"},
		codebase.ModuleUnit{ID: "OrderHandler", Tag: "Application"},
	)
	res = Evaluate(bad, rule)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"OrderHandler"}, res.Violators)
	assert.Equal(t, "Domain", res.Findings[0].Missing)
}

func TestRequireDependency_ExternalTarget(t *testing.T) {
	cb := codebase.MustNew(
		codebase.ModuleUnit{ID: "Api.OrdersController", Tag: "API", Dependencies: []string{"MediatR"}},
		codebase.ModuleUnit{ID: "Api.UsersController", Tag: "API", Dependencies: []string{"Api.Helpers"}},
		codebase.ModuleUnit{ID: "Api.Helpers", Tag: "API"},
	)
	res := Evaluate(cb, requireDep(t, MustNameSuffix("Controller"), "MediatR"))
	assert.Equal(t, []string{"Api.UsersController"}, res.Violators)
}

func TestRequireDependency_NoSubjectsIsVacuouslyTrue(t *testing.T) {
	cb := codebase.MustNew(codebase.ModuleUnit{ID: "Domain.Order", Tag: "Domain"})
	res := Evaluate(cb, requireDep(t, MustNameSuffix("Handler"), "Domain"))
	assert.True(t, res.Success)
	assert.Empty(t, res.Violators)
	assert.Zero(t, res.Subjects)
}

func TestStubUnitsLendTagsButAreNeverSubjects(t *testing.T) {
	cb := codebase.MustNew(
		codebase.ModuleUnit{ID: "Domain.Order", Tag: "Domain", Dependencies: []string{"Infra.StoreHandler"}},
		codebase.ModuleUnit{ID: "Infra.StoreHandler", Tag: "Infrastructure", Stub: true},
	)

	res := Evaluate(cb, forbid(t, MustTag("Domain"), "Infrastructure"))
	assert.False(t, res.Success)
	assert.Equal(t, []string{"Domain.Order"}, res.Violators)

	res = Evaluate(cb, requireDep(t, MustNameSuffix("Handler"), "Domain"))
	assert.True(t, res.Success)
	assert.Zero(t, res.Subjects)
}

func TestNameSuffixIsCaseSensitive(t *testing.T) {
	cb := codebase.MustNew(codebase.ModuleUnit{ID: "App.Orderhandler", Tag: "Application"})
	res := Evaluate(cb, requireDep(t, MustNameSuffix("Handler"), "Domain"))
	assert.True(t, res.Success)
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	cb := codebase.MustNew(
		codebase.ModuleUnit{ID: "a", Tag: "Domain", Dependencies: []string{"c", "b"}},
		codebase.ModuleUnit{ID: "b", Tag: "Application"},
		codebase.ModuleUnit{ID: "c", Tag: "API"},
	)
	rule := forbid(t, MustTag("Domain"), "Application", "API")
	first := Evaluate(cb, rule)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Evaluate(cb, rule))
	}
}

func TestEvaluateAll_PreservesOrderUnderParallelism(t *testing.T) {
	units := make([]codebase.ModuleUnit, 0, 64)
	for i := 0; i < 64; i++ {
		tag := fmt.Sprintf("L%d", i%8)
		deps := []string{fmt.Sprintf("u%d", (i+1)%64)}
		units = append(units, codebase.ModuleUnit{ID: fmt.Sprintf("u%d", i), Tag: tag, Dependencies: deps})
	}
	cb := codebase.MustNew(units...)

	ruleSet := make([]Rule, 0, 40)
	for i := 0; i < 40; i++ {
		from := fmt.Sprintf("L%d", i%8)
		to := fmt.Sprintf("L%d", (i+1)%8)
		if i%3 == 0 {
			to = "nowhere"
		}
		r, err := NewForbidDependency(fmt.Sprintf("rule-%02d", i), MustTag(from), to)
		require.NoError(t, err)
		ruleSet = append(ruleSet, r)
	}

	sequential := make([]RuleResult, len(ruleSet))
	for i, r := range ruleSet {
		sequential[i] = Evaluate(cb, r)
	}

	for _, n := range []int{1, 4, 16} {
		got := NewEvaluator(WithParallelism(n)).EvaluateAll(context.Background(), cb, ruleSet)
		require.Len(t, got, len(ruleSet))
		for i := range got {
			assert.Equal(t, ruleSet[i].Name(), got[i].Rule.Name())
			assert.Equal(t, sequential[i], got[i])
		}
	}
}

func TestEvaluateAll_EmptyInputs(t *testing.T) {
	assert.Empty(t, EvaluateAll(codebase.MustNew(), nil))

	res := EvaluateAll(nil, []Rule{forbid(t, MustTag("Domain"), "API")})
	require.Len(t, res, 1)
	assert.True(t, res[0].Success)
}

func TestReport_Passed(t *testing.T) {
	cb := codebase.MustNew(
		codebase.ModuleUnit{ID: "a", Tag: "Domain", Dependencies: []string{"b"}},
		codebase.ModuleUnit{ID: "b", Tag: "API"},
	)
	results := EvaluateAll(cb, []Rule{
		forbid(t, MustTag("API"), "Domain"),
		forbid(t, MustTag("Domain"), "API"),
	})
	report := Report{Results: results}
	assert.False(t, report.Passed())
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, []string{"a"}, report.Failed()[0].Violators)

	assert.True(t, Report{}.Passed())
}
