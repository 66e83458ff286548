// Package backend defines the contract a target templating language implements
// to receive compiled components, plus the registry backends add themselves to.
package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/recera/uimacro/pkg/spec"
)

// Param is one macro parameter in header order
type Param struct {
	Name       string
	Required   bool
	Default    any
	HasDefault bool
}

// Backend renders the target syntax for a macro and its guards.
type Backend interface {
	Name() string
	Description() string

	// Header opens a macro. Params arrive required first.
	Header(name string, params []Param) string
	Footer(name string) string

	GuardOpen(cond *spec.Condition) string
	GuardElse() string
	GuardClose() string

	// Reference is the expression that prints the named property.
	Reference(prop string) string
	// Passthrough is the expression that prints the caller's children.
	Passthrough() string
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Backend)
)

// Register adds a backend to the registry
func Register(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	registry[b.Name()] = b
}

// Lookup returns the backend registered under name.
func Lookup(name string) (Backend, error) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend: %s (available: %v)", name, namesLocked())
	}
	return b, nil
}

// Names lists the registered backends in sorted order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
