package rules

import (
	"fmt"
	"strings"

	"layercheck/internal/core/errors"
	"layercheck/internal/engine/codebase"
)

type Kind string

const (
	KindForbid  Kind = "forbid"
	KindRequire Kind = "require"
)

// Rule is one of ForbidDependency or RequireDependency.
type Rule interface {
	Name() string
	Kind() Kind
	Subject() Filter
	Targets() []string
	String() string

	evaluate(cb *codebase.Codebase) RuleResult
}

// Finding explains why a single unit violates a rule.
type Finding struct {
	Unit     string
	Location codebase.Location
	// Offending lists the dependencies that hit a forbidden target.
	Offending []string
	// Missing is the required target the unit does not depend on.
	Missing string
}

// RuleResult is the outcome of evaluating one rule. Violators is empty iff Success.
type RuleResult struct {
	Rule      Rule
	Success   bool
	Violators []string
	Findings  []Finding
	// Subjects counts the units selected by the rule's filter.
	Subjects int
}

type ForbidDependency struct {
	name      string
	subject   Filter
	forbidden []string
}

// NewForbidDependency builds a rule failing every subject unit with a direct
// dependency on any forbidden target (a tag or a literal identifier).
func NewForbidDependency(name string, subject Filter, forbidden ...string) (*ForbidDependency, error) {
	if subject.IsZero() {
		return nil, configErr(name, "subject filter must not be empty")
	}
	if len(forbidden) == 0 {
		return nil, configErr(name, "forbidden targets must not be empty")
	}
	targets := make([]string, 0, len(forbidden))
	for _, t := range forbidden {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, configErr(name, "forbidden target must not be blank")
		}
		targets = append(targets, t)
	}
	return &ForbidDependency{name: name, subject: subject, forbidden: targets}, nil
}

func (r *ForbidDependency) Name() string {
	if r.name != "" {
		return r.name
	}
	return r.String()
}

func (r *ForbidDependency) Kind() Kind      { return KindForbid }
func (r *ForbidDependency) Subject() Filter { return r.subject }

func (r *ForbidDependency) Targets() []string {
	return append([]string(nil), r.forbidden...)
}

func (r *ForbidDependency) String() string {
	return fmt.Sprintf("%s must not depend on %s", r.subject, strings.Join(r.forbidden, ", "))
}

func (r *ForbidDependency) evaluate(cb *codebase.Codebase) RuleResult {
	res := RuleResult{Rule: r}
	cb.Each(func(u *codebase.ModuleUnit) {
		if !r.subject.Match(u) {
			return
		}
		res.Subjects++
		var offending []string
		for _, dep := range u.Dependencies {
			for _, target := range r.forbidden {
				if matchesTarget(cb, dep, target) {
					offending = append(offending, dep)
					break
				}
			}
		}
		if len(offending) > 0 {
			res.Violators = append(res.Violators, u.ID)
			res.Findings = append(res.Findings, Finding{Unit: u.ID, Location: u.Location, Offending: offending})
		}
	})
	res.Success = len(res.Violators) == 0
	return res
}

type RequireDependency struct {
	name     string
	subject  Filter
	required string
}

// NewRequireDependency builds a rule failing every subject unit that has no
// direct dependency matching required.
func NewRequireDependency(name string, subject Filter, required string) (*RequireDependency, error) {
	if subject.IsZero() {
		return nil, configErr(name, "subject filter must not be empty")
	}
	required = strings.TrimSpace(required)
	if required == "" {
		return nil, configErr(name, "required target must not be empty")
	}
	return &RequireDependency{name: name, subject: subject, required: required}, nil
}

func (r *RequireDependency) Name() string {
	if r.name != "" {
		return r.name
	}
	return r.String()
}

func (r *RequireDependency) Kind() Kind        { return KindRequire }
func (r *RequireDependency) Subject() Filter   { return r.subject }
func (r *RequireDependency) Targets() []string { return []string{r.required} }

func (r *RequireDependency) String() string {
	return fmt.Sprintf("%s must depend on %s", r.subject, r.required)
}

func (r *RequireDependency) evaluate(cb *codebase.Codebase) RuleResult {
	res := RuleResult{Rule: r}
	cb.Each(func(u *codebase.ModuleUnit) {
		if !r.subject.Match(u) {
			return
		}
		res.Subjects++
		for _, dep := range u.Dependencies {
			if matchesTarget(cb, dep, r.required) {
				return
			}
		}
		res.Violators = append(res.Violators, u.ID)
		res.Findings = append(res.Findings, Finding{Unit: u.ID, Location: u.Location, Missing: r.required})
	})
	res.Success = len(res.Violators) == 0
	return res
}

// matchesTarget: in-codebase dependencies match by tag, anything matches by
// exact identifier.
func matchesTarget(cb *codebase.Codebase, dep, target string) bool {
	if tag, ok := cb.TagOf(dep); ok && tag != "" && tag == target {
		return true
	}
	return dep == target
}

func configErr(rule, msg string) error {
	err := &errors.DomainError{Code: errors.CodeConfiguration, Message: msg}
	if rule != "" {
		err.WithContext(errors.CtxRule, rule)
	}
	return err
}
