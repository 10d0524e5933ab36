// Package classify holds the per-analysis table of event classifiers.
package classify

import (
	"slices"

	"hookstat/src/contracts"
)

// Classifier decides whether an event is interesting to an analysis and, if so,
// which key it aggregates under. It must not keep state between calls.
type Classifier func(ev contracts.Event) (contracts.Key, bool, error)

// Registry maps event kinds to the classifiers registered for them.
// Build it before the run starts; it is read-only afterwards.
type Registry struct {
	byKind map[contracts.EventKind][]Classifier
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKind: make(map[contracts.EventKind][]Classifier)}
}

// On registers c for kind. Several classifiers may share a kind.
func (r *Registry) On(kind contracts.EventKind, c Classifier) *Registry {
	r.byKind[kind] = append(r.byKind[kind], c)
	return r
}

// Any registers c for every hook kind.
func (r *Registry) Any(c Classifier) *Registry {
	for _, k := range contracts.HookKinds() {
		r.On(k, c)
	}
	return r
}

// For returns the classifiers registered for kind.
func (r *Registry) For(kind contracts.EventKind) []Classifier {
	return r.byKind[kind]
}

// Kinds returns the registered kinds in enum order.
func (r *Registry) Kinds() []contracts.EventKind {
	kinds := make([]contracts.EventKind, 0, len(r.byKind))
	for k := range r.byKind {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// SiteKey is the common key strategy: one key per code site.
func SiteKey(analysis, category string) Classifier {
	return func(ev contracts.Event) (contracts.Key, bool, error) {
		return contracts.Key{Analysis: analysis, Category: category, ID: ev.IID}, true, nil
	}
}
