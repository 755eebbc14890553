// Package transition validates status changes against per-entity adjacency
// tables. A graph lists every legal (from, to) edge and, optionally, the
// permission an actor must hold to take it.
package transition

import (
	"fmt"
	"sort"

	"github.com/shopadmin/backend/internal/domain/identity"
)

// Graph is the transition table of one status field
type Graph[S ~string] struct {
	entity string
	states []S
	edges  map[S]map[S]identity.Permission
}

// NewGraph creates an empty graph over the given states
func NewGraph[S ~string](entity string, states ...S) *Graph[S] {
	return &Graph[S]{
		entity: entity,
		states: states,
		edges:  make(map[S]map[S]identity.Permission, len(states)),
	}
}

// Allow adds an unguarded edge
func (g *Graph[S]) Allow(from S, to ...S) *Graph[S] {
	for _, t := range to {
		g.AllowWith(from, t, "")
	}
	return g
}

// AllowWith adds an edge that requires perm. An empty perm means unguarded.
func (g *Graph[S]) AllowWith(from, to S, perm identity.Permission) *Graph[S] {
	if g.edges[from] == nil {
		g.edges[from] = make(map[S]identity.Permission)
	}
	g.edges[from][to] = perm
	return g
}

// Entity returns the entity name used in rejections
func (g *Graph[S]) Entity() string {
	return g.entity
}

// States returns every state of the graph
func (g *Graph[S]) States() []S {
	out := make([]S, len(g.states))
	copy(out, g.states)
	return out
}

// IsState reports whether s is a declared state
func (g *Graph[S]) IsState(s S) bool {
	for _, st := range g.states {
		if st == s {
			return true
		}
	}
	return false
}

// Targets returns the states reachable from `from` in one step, sorted
func (g *Graph[S]) Targets(from S) []S {
	out := make([]S, 0, len(g.edges[from]))
	for to := range g.edges[from] {
		out = append(out, to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsTerminal reports whether no edge leaves s
func (g *Graph[S]) IsTerminal(s S) bool {
	return len(g.edges[s]) == 0
}

// Guard returns the permission required by an edge and whether the edge exists
func (g *Graph[S]) Guard(from, to S) (identity.Permission, bool) {
	perm, ok := g.edges[from][to]
	return perm, ok
}

// Validate checks a single transition. Moving to the current state is a
// no-op and always passes.
func (g *Graph[S]) Validate(from, to S, perms identity.PermissionSet) error {
	if from == to {
		return nil
	}
	perm, ok := g.Guard(from, to)
	if !ok {
		return &Rejection{
			Entity: g.entity,
			From:   string(from),
			To:     string(to),
			Reason: ReasonNoSuchEdge,
		}
	}
	if perm != "" && !perms.Has(perm) {
		return &Rejection{
			Entity:   g.entity,
			From:     string(from),
			To:       string(to),
			Reason:   ReasonPermissionDenied,
			Required: perm,
		}
	}
	return nil
}

// ValidateString is the untyped form of Validate used by the Registry
func (g *Graph[S]) ValidateString(from, to string, perms identity.PermissionSet) error {
	return g.Validate(S(from), S(to), perms)
}

// String renders the graph for diagnostics
func (g *Graph[S]) String() string {
	n := 0
	for _, m := range g.edges {
		n += len(m)
	}
	return fmt.Sprintf("%s graph (%d states, %d edges)", g.entity, len(g.states), n)
}
