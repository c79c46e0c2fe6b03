package emitters

import (
	"slices"
	"sync"
)

// ResourceKind is the type of a shared page resource.
type ResourceKind string

const (
	Stylesheet ResourceKind = "stylesheet"
	Script     ResourceKind = "script"
)

// Resource is an artifact every page references, such as index.css.
type Resource struct {
	Kind ResourceKind
	Path string // artifact path relative to the output root
}

// ResourceRegistry accumulates resource declarations from concurrent emitters.
// It is append-only; Reconcile produces the ordered, deduplicated view.
type ResourceRegistry struct {
	mu       sync.Mutex
	declared []Resource
}

// NewResourceRegistry returns an empty registry.
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{}
}

// Register appends resources. Safe for concurrent use.
func (r *ResourceRegistry) Register(res ...Resource) {
	r.mu.Lock()
	r.declared = append(r.declared, res...)
	r.mu.Unlock()
}

// Reconcile returns the declared resources sorted by path with duplicates
// removed. The result does not depend on registration order.
func (r *ResourceRegistry) Reconcile() Resources {
	r.mu.Lock()
	declared := slices.Clone(r.declared)
	r.mu.Unlock()

	var out Resources
	for _, res := range declared {
		switch res.Kind {
		case Stylesheet:
			out.Stylesheets = append(out.Stylesheets, res.Path)
		case Script:
			out.Scripts = append(out.Scripts, res.Path)
		}
	}
	slices.Sort(out.Stylesheets)
	slices.Sort(out.Scripts)
	out.Stylesheets = slices.Compact(out.Stylesheets)
	out.Scripts = slices.Compact(out.Scripts)
	return out
}

// Resources is the reconciled resource set pages reference.
type Resources struct {
	Stylesheets []string
	Scripts     []string
}
