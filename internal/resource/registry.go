package resource

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// RouteInfo describes one mounted route, for the routes command
type RouteInfo struct {
	Method   string
	Path     string
	Resource string
}

// Registry collects resources during start-up and mounts them as one
// read-only set. Registration after mounting is an error; descriptors
// are validated as they arrive so misconfiguration fails before the
// server starts.
type Registry struct {
	mu           sync.RWMutex
	sealed       bool
	names        map[string]bool
	resources    []*Resource
	associations []*AssociationResource
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register adds a resource to the registry
func (reg *Registry) Register(r *Resource) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.sealed {
		return fmt.Errorf("registry is sealed; register resources before mounting")
	}
	if reg.names[r.desc.Name] {
		return fmt.Errorf("resource %s is already registered", r.desc.Name)
	}

	reg.names[r.desc.Name] = true
	reg.resources = append(reg.resources, r)
	return nil
}

// RegisterAssociation adds an association resource to the registry
func (reg *Registry) RegisterAssociation(ar *AssociationResource) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.sealed {
		return fmt.Errorf("registry is sealed; register resources before mounting")
	}
	if reg.names[ar.desc.Name] {
		return fmt.Errorf("resource %s is already registered", ar.desc.Name)
	}

	reg.names[ar.desc.Name] = true
	reg.associations = append(reg.associations, ar)
	return nil
}

// Mount mounts every registered resource on the router and seals the
// registry against further registration
func (reg *Registry) Mount(router chi.Router) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for _, r := range reg.resources {
		r.Mount(router)
	}
	for _, ar := range reg.associations {
		ar.Mount(router)
	}
	reg.sealed = true
}

// Routes returns the full route table, sorted by path then method
func (reg *Registry) Routes() []RouteInfo {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var routes []RouteInfo
	for _, r := range reg.resources {
		name := r.desc.Name
		routes = append(routes,
			RouteInfo{Method: "GET", Path: "/" + name + "/", Resource: name},
			RouteInfo{Method: "POST", Path: "/" + name + "/", Resource: name},
			RouteInfo{Method: "GET", Path: "/" + name + "/{id}/", Resource: name},
			RouteInfo{Method: "PUT", Path: "/" + name + "/{id}/", Resource: name},
			RouteInfo{Method: "PATCH", Path: "/" + name + "/{id}/", Resource: name},
			RouteInfo{Method: "DELETE", Path: "/" + name + "/{id}/", Resource: name},
		)
	}
	for _, ar := range reg.associations {
		name := ar.desc.Name
		item := "/" + name + "/{" + ar.desc.LeftKey + "}/{" + ar.desc.RightKey + "}/"
		routes = append(routes,
			RouteInfo{Method: "GET", Path: "/" + name + "/", Resource: name},
			RouteInfo{Method: "POST", Path: "/" + name + "/", Resource: name},
			RouteInfo{Method: "GET", Path: item, Resource: name},
			RouteInfo{Method: "PUT", Path: item, Resource: name},
			RouteInfo{Method: "PATCH", Path: item, Resource: name},
			RouteInfo{Method: "DELETE", Path: item, Resource: name},
		)
	}

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}
