package layers

import (
	"fmt"
	"sort"
	"strings"

	"layercheck/internal/core/errors"
	"layercheck/internal/shared/util"

	"github.com/gobwas/glob"
)

type Layer struct {
	Name  string
	Paths []string
}

// Resolver assigns a layer tag to a package path or dotted namespace.
type Resolver struct {
	layers []layerMatcher
}

type layerMatcher struct {
	name     string
	patterns []compiledPattern
}

type compiledPattern struct {
	raw        string
	isWildcard bool
	glob       glob.Glob
}

func NewResolver(layers []Layer) (*Resolver, error) {
	r := &Resolver{layers: make([]layerMatcher, 0, len(layers))}
	for _, layer := range layers {
		if strings.TrimSpace(layer.Name) == "" {
			return nil, errors.New(errors.CodeConfiguration, "layer name must not be empty")
		}
		matcher := layerMatcher{name: layer.Name}
		for _, raw := range layer.Paths {
			pattern := util.NormalizePatternPath(raw)
			if pattern == "" {
				continue
			}
			cp := compiledPattern{
				raw:        pattern,
				isWildcard: util.HasWildcard(pattern),
			}
			if cp.isWildcard {
				g, err := glob.Compile(pattern, '/')
				if err != nil {
					return nil, errors.Wrap(err, errors.CodeConfiguration, fmt.Sprintf("layer %q: invalid pattern %q", layer.Name, raw))
				}
				cp.glob = g
			}
			matcher.patterns = append(matcher.patterns, cp)
		}
		r.layers = append(r.layers, matcher)
	}
	return r, nil
}

// Resolve returns the layer owning key, or "" when none does. When several
// layers match, the one with the longest matching pattern wins; ties go to
// the lexically smaller layer name.
func (r *Resolver) Resolve(key string) string {
	if r == nil || len(r.layers) == 0 {
		return ""
	}
	type candidate struct {
		layer string
		score int
	}

	name := util.NormalizePatternPath(key)
	candidates := make([]candidate, 0)
	for _, layer := range r.layers {
		best := 0
		for _, p := range layer.patterns {
			if matchPattern(p, name) && len(p.raw) > best {
				best = len(p.raw)
			}
		}
		if best > 0 {
			candidates = append(candidates, candidate{layer: layer.name, score: best})
		}
	}
	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score == candidates[j].score {
			return candidates[i].layer < candidates[j].layer
		}
		return candidates[i].score > candidates[j].score
	})
	return candidates[0].layer
}

func (r *Resolver) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.layers))
	for _, l := range r.layers {
		out = append(out, l.name)
	}
	return out
}

// matchPattern treats both "/" and "." as namespace separators for literal
// prefixes so that "internal/domain" and "Domain.Abstractions" style keys work.
func matchPattern(p compiledPattern, name string) bool {
	if p.isWildcard {
		return p.glob != nil && p.glob.Match(name)
	}
	if util.HasPathPrefix(name, p.raw) {
		return true
	}
	return strings.HasPrefix(name, p.raw+".")
}
