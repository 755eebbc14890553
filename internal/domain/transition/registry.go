package transition

import (
	"sort"
	"sync"

	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// Validator is the untyped view of a Graph
type Validator interface {
	Entity() string
	ValidateString(from, to string, perms identity.PermissionSet) error
}

// Registry looks up graphs by entity type
type Registry struct {
	mu     sync.RWMutex
	graphs map[string]Validator
}

// NewRegistry creates a registry holding the given graphs
func NewRegistry(graphs ...Validator) *Registry {
	r := &Registry{graphs: make(map[string]Validator, len(graphs))}
	for _, g := range graphs {
		r.Register(g)
	}
	return r
}

// Register adds or replaces a graph
func (r *Registry) Register(g Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.graphs[g.Entity()] = g
}

// Validate checks from -> to on the graph registered for entityType
func (r *Registry) Validate(entityType, from, to string, perms identity.PermissionSet) error {
	r.mu.RLock()
	g, ok := r.graphs[entityType]
	r.mu.RUnlock()
	if !ok {
		return shared.NewValidationError("Unknown entity type", map[string]any{"entity": entityType})
	}
	return g.ValidateString(from, to, perms)
}

// Entities returns the registered entity types, sorted
func (r *Registry) Entities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.graphs))
	for name := range r.graphs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
