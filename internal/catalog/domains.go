// Package catalog covers the static lookup data of the rating engine:
// the knowledge-domain registry and the achievement definition catalog.
// Both are maintained out of band and read-only to the pipeline.
package catalog

import (
	"context"

	"github.com/communitylab/rating-engine/internal/store"
)

// Resolver maps human-readable domain tags from the engagement source to
// internal domain ids. Built fresh once per pipeline run.
type Resolver struct {
	byName map[string]int
}

// LoadResolver reads the full domain catalog into a Resolver.
func LoadResolver(ctx context.Context, s *store.Store) (*Resolver, error) {
	domains, err := s.ListDomains(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int, len(domains))
	for _, domain := range domains {
		byName[domain.Name] = domain.DomainID
	}
	return &Resolver{byName: byName}, nil
}

// Resolve looks up the internal id for a domain tag.
func (r *Resolver) Resolve(tag string) (int, bool) {
	id, ok := r.byName[tag]
	return id, ok
}

// Len reports how many domains are known.
func (r *Resolver) Len() int {
	return len(r.byName)
}
