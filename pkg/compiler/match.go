package compiler

import (
	"fmt"

	"github.com/recera/uimacro/pkg/backend"
	"github.com/recera/uimacro/pkg/markup"
	"github.com/recera/uimacro/pkg/spec"
)

// Diagnostic is a non-fatal finding about a component.
type Diagnostic struct {
	Component string `json:"component"`
	Property  string `json:"property,omitempty"`
	Target    string `json:"target,omitempty"`
	Message   string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Property != "" {
		return fmt.Sprintf("%s: property %s: %s", d.Component, d.Property, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Component, d.Message)
}

// UnresolvedTargetError reports a rule whose target matches nothing in strict mode.
type UnresolvedTargetError struct {
	Component string
	Property  string
	Target    string
}

func (e *UnresolvedTargetError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("%s: children target %q matches no element", e.Component, e.Target)
	}
	return fmt.Sprintf("%s: target %q of property %s matches no element", e.Component, e.Target, e.Property)
}

// MatchSet binds rules to the nodes they transform.
type MatchSet struct {
	Tree        *markup.Tree
	Rules       map[markup.NodeID][]*spec.Transformation
	Params      []backend.Param
	Diagnostics []Diagnostic
}

// For returns the rules bound to a node in authoring order.
func (m *MatchSet) For(id markup.NodeID) []*spec.Transformation {
	return m.Rules[id]
}

// Match resolves every rule of comp against tree. Slots without a rule are
// bound afterwards: named slots become required parameters and unnamed slots
// pass the caller's children through.
func (c *Compiler) Match(comp *spec.Component, tree *markup.Tree) (*MatchSet, error) {
	ms := &MatchSet{
		Tree:  tree,
		Rules: make(map[markup.NodeID][]*spec.Transformation),
	}

	for _, tf := range comp.Transformations() {
		id, ok, err := c.resolve(tree, tf.Target)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", comp.Name, err)
		}
		if !ok {
			if c.opts.Strict {
				return nil, &UnresolvedTargetError{Component: comp.Name, Property: tf.Property, Target: tf.Target}
			}
			ms.Diagnostics = append(ms.Diagnostics, Diagnostic{
				Component: comp.Name,
				Property:  tf.Property,
				Target:    tf.Target,
				Message:   fmt.Sprintf("target %q matches no element, rule dropped", tf.Target),
			})
			continue
		}
		ms.Rules[id] = append(ms.Rules[id], tf)
	}

	declared := make(map[string]bool)
	var required, optional []backend.Param
	for _, p := range comp.Properties {
		declared[p.Name] = true
		param := backend.Param{Name: p.Name, Required: p.Required, Default: p.Default, HasDefault: p.HasDefault}
		if p.Required {
			required = append(required, param)
		} else {
			optional = append(optional, param)
		}
	}

	for _, id := range tree.Slots() {
		if len(ms.Rules[id]) > 0 {
			continue
		}
		name, named := tree.Node(id).Attr("name")
		if !named || name == "" {
			ms.Rules[id] = []*spec.Transformation{{
				Target: "slot:not([name])",
				Outer:  spec.ChildrenValue(spec.Replace),
			}}
			continue
		}
		ms.Rules[id] = []*spec.Transformation{{
			Property: name,
			Target:   spec.SlotTarget(name),
			Outer:    &spec.Value{Template: "{" + name + "}", Action: spec.Replace},
		}}
		if !declared[name] {
			declared[name] = true
			required = append(required, backend.Param{Name: name, Required: true})
		}
	}

	ms.Params = append(required, optional...)
	return ms, nil
}

func (c *Compiler) resolve(tree *markup.Tree, target string) (markup.NodeID, bool, error) {
	if target == spec.RootTarget {
		return tree.Root(), true, nil
	}
	return tree.SelectFirst(target)
}
