// Package compiler binds a component's rules to its markup and generates the
// macro through a backend.
package compiler

import (
	"fmt"
	"strings"

	"github.com/recera/uimacro/pkg/backend"
	"github.com/recera/uimacro/pkg/markup"
	"github.com/recera/uimacro/pkg/spec"
)

// Options control a Compiler
type Options struct {
	// Strict turns unresolved targets into errors.
	Strict bool
}

// Compiler turns components into macros for one backend. It keeps no state
// between components and is safe for concurrent use.
type Compiler struct {
	backend backend.Backend
	opts    Options
}

// Result is one compiled component
type Result struct {
	Component   *spec.Component
	Output      string
	Params      []backend.Param
	Diagnostics []Diagnostic
}

// New creates a compiler for b
func New(b backend.Backend, opts Options) *Compiler {
	return &Compiler{backend: b, opts: opts}
}

// Backend returns the backend output is rendered for.
func (c *Compiler) Backend() backend.Backend {
	return c.backend
}

// Options returns the options the compiler was created with.
func (c *Compiler) Options() Options {
	return c.opts
}

// CompileSource parses a component file and compiles it.
func (c *Compiler) CompileSource(name, source string) (*Result, error) {
	comp, err := spec.Parse(name, source)
	if err != nil {
		return nil, err
	}
	return c.Compile(comp)
}

// Compile generates the macro for comp. The output has no trailing newline.
func (c *Compiler) Compile(comp *spec.Component) (*Result, error) {
	tree, err := markup.Parse(comp.Template)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", comp.Name, err)
	}

	ms, err := c.Match(comp, tree)
	if err != nil {
		return nil, err
	}

	w := &walker{b: c.backend, ms: ms, comp: comp.Name}
	w.lines = append(w.lines, c.backend.Header(comp.Name, ms.Params))
	w.depth = 1
	if err := w.walk(tree.Root()); err != nil {
		return nil, err
	}
	if len(w.frames) != 0 || w.open != 0 {
		return nil, fmt.Errorf("%s: %d frames and %d guards left open: %w", comp.Name, len(w.frames), w.open, ErrGuardNesting)
	}
	w.depth = 0
	w.emit(c.backend.Footer(comp.Name))

	return &Result{
		Component:   comp,
		Output:      strings.Join(w.lines, "\n"),
		Params:      ms.Params,
		Diagnostics: append(ms.Diagnostics, w.diags...),
	}, nil
}
