// Package oauth implements the external login providers.
package oauth

import (
	"sort"

	"github.com/ruziba3vich/toolshed/internal/domain/oauth"
	apperrors "github.com/ruziba3vich/toolshed/pkg/errors"
)

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]oauth.Provider
}

// NewRegistry registers the given providers. Names must be unique.
func NewRegistry(list ...oauth.Provider) *Registry {
	m := make(map[string]oauth.Provider, len(list))
	for _, p := range list {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (oauth.Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, apperrors.ErrUnknownProvider
	}
	return p, nil
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
