// Package spec turns component front-matter metadata into the rule set the
// compiler matches against a component's markup.
package spec

import "fmt"

// RootTarget is the target sentinel for the template's top-level element.
const RootTarget = "&"

// Action describes how a value combines with existing content
type Action string

const (
	Append  Action = "append"
	Prepend Action = "prepend"
	Replace Action = "replace"
)

func parseAction(s string) (Action, bool) {
	switch Action(s) {
	case Append, Prepend, Replace:
		return Action(s), true
	}
	return "", false
}

// Operator is the comparison of a Condition
type Operator string

const (
	OpEquals    Operator = "$eq"
	OpNotEquals Operator = "$neq"
	OpUndefined Operator = "$undefined"
	OpDefined   Operator = "$defined"
	OpTruthy    Operator = "$truthy"
)

// Condition guards a transformation on the runtime value of a property.
type Condition struct {
	Property string
	Op       Operator
	Operand  any
}

func (c *Condition) String() string {
	switch c.Op {
	case OpUndefined, OpDefined, OpTruthy:
		return fmt.Sprintf("%s %s", c.Property, c.Op)
	}
	return fmt.Sprintf("%s %s %v", c.Property, c.Op, c.Operand)
}

// Value is a value template plus the way it combines with the original content.
// When Children is set the value is the caller's child content rather than a template.
type Value struct {
	Template string
	Children bool
	Action   Action
}

// ChildrenValue returns the value that replaces content with the caller's children.
func ChildrenValue(action Action) *Value {
	return &Value{Children: true, Action: action}
}

func (v *Value) String() string {
	if v.Children {
		return fmt.Sprintf("%s(<children>)", v.Action)
	}
	return fmt.Sprintf("%s(%q)", v.Action, v.Template)
}

// AttributeRule changes one attribute of the target node
type AttributeRule struct {
	Name  string
	Value *Value
}

// Transformation is a rule bound to a single target node.
type Transformation struct {
	// Property is the owning property; empty for the children rule.
	Property   string
	Target     string
	Attributes []AttributeRule
	Inner      *Value
	Outer      *Value
	Match      *Condition
	// Fallback marks rules synthesized from a property's "missing" block.
	Fallback bool
}

// Conditional reports whether the transformation only applies under a guard.
func (t *Transformation) Conditional() bool {
	return t.Match != nil
}

// Property is a named macro input controlling one or more transformations.
type Property struct {
	Name            string
	Required        bool
	Default         any
	HasDefault      bool
	Transformations []*Transformation
	Missing         []*Transformation
}

// All returns the primary transformations followed by the fallbacks.
func (p *Property) All() []*Transformation {
	all := make([]*Transformation, 0, len(p.Transformations)+len(p.Missing))
	all = append(all, p.Transformations...)
	return append(all, p.Missing...)
}

// Component is one compiled unit: a template plus its rule set.
type Component struct {
	Name       string
	Template   string
	Properties []*Property
	// Children is the explicit children rule; nil means unnamed slots receive
	// the caller's content.
	Children *Transformation
}

// Property looks up a property by name.
func (c *Component) Property(name string) (*Property, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// Transformations returns every rule in matching order: properties in
// declaration order, then the explicit children rule.
func (c *Component) Transformations() []*Transformation {
	var all []*Transformation
	for _, p := range c.Properties {
		all = append(all, p.All()...)
	}
	if c.Children != nil {
		all = append(all, c.Children)
	}
	return all
}

// SlotTarget returns the selector of the named slot.
func SlotTarget(name string) string {
	return fmt.Sprintf("slot[name=%q]", name)
}
