package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/seblake/convo/models"
)

// Registry holds the tool implementations available to a conversation, keyed
// by function name. It is safe for concurrent lookup.
type Registry struct {
	mu    sync.RWMutex
	decls map[string]models.FunctionDeclaration
}

func NewRegistry(decls ...models.FunctionDeclaration) *Registry {
	r := &Registry{decls: make(map[string]models.FunctionDeclaration, len(decls))}
	for _, d := range decls {
		r.decls[d.Name] = d
	}
	return r
}

// Register adds or replaces a tool declaration. Declarations without a name
// or handler are rejected.
func (r *Registry) Register(decl models.FunctionDeclaration) error {
	if decl.Name == "" {
		return fmt.Errorf("tool declaration must have a name")
	}
	if decl.Handler == nil {
		return fmt.Errorf("tool '%s' must have a handler", decl.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decls[decl.Name] = decl
	return nil
}

// Lookup returns the declaration registered under name, if any.
func (r *Registry) Lookup(name string) (models.FunctionDeclaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decl, ok := r.decls[name]
	return decl, ok
}

// Declarations returns the JSON-schema descriptors to attach to completion
// requests, in stable name order.
func (r *Registry) Declarations() []models.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.decls) == 0 {
		return nil
	}

	names := make([]string, 0, len(r.decls))
	for name := range r.decls {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]models.Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, r.decls[name].WireTool())
	}
	return tools
}
