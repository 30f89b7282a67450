// Package teams resolves team display names to stable provider identifiers.
package teams

import (
	"context"
	"fmt"

	"github.com/albapepper/scoracle-predict/internal/provider"
)

// Overrides bind alternate spellings to a franchise identifier. The game log
// and the franchise directory disagree on the Clippers' name.
var Overrides = map[string]int{
	"LA Clippers": 1610612746,
}

// Registry is an immutable bidirectional name/identifier map. Build it once
// per run with Resolve and share it read-only.
type Registry struct {
	byName map[string]int
	byID   map[int]string
}

// Resolve fetches the team directory and applies Overrides.
func Resolve(ctx context.Context, src provider.Source) (*Registry, error) {
	list, err := src.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch team directory: %w", err)
	}
	return New(list), nil
}

// New builds a registry from a team list. Overrides are applied last so they
// win over any directory entry with the same spelling.
func New(list []provider.Team) *Registry {
	r := &Registry{
		byName: make(map[string]int, len(list)+len(Overrides)),
		byID:   make(map[int]string, len(list)),
	}
	for _, t := range list {
		r.byName[t.Name] = t.ID
		if _, seen := r.byID[t.ID]; !seen {
			r.byID[t.ID] = t.Name
		}
	}
	for name, id := range Overrides {
		r.byName[name] = id
	}
	return r
}

// ID returns the identifier bound to a display name.
func (r *Registry) ID(name string) (int, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Name returns the directory name for an identifier, or "" when unknown.
func (r *Registry) Name(id int) string {
	return r.byID[id]
}

// Team returns the Team for an identifier. Unknown identifiers yield a team
// with a blank name rather than an error.
func (r *Registry) Team(id int) provider.Team {
	return provider.Team{ID: id, Name: r.byID[id]}
}

// Len returns the number of bound display names, aliases included.
func (r *Registry) Len() int {
	return len(r.byName)
}
