package spec

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse builds a component from a source file: optional front matter followed
// by the template markup.
func Parse(name, source string) (*Component, error) {
	body, meta, found := ExtractFrontMatter(source)

	var root *yaml.Node
	if found && len(bytes.TrimSpace(meta)) > 0 {
		var doc yaml.Node
		if err := yaml.Unmarshal(meta, &doc); err != nil {
			return nil, &SpecFormatError{Msg: fmt.Sprintf("invalid metadata: %v", err)}
		}
		root = &doc
	}

	c, err := Build(name, body, root)
	if err != nil {
		// Report lines relative to the source file, past the opening delimiter.
		var sfe *SpecFormatError
		if errors.As(err, &sfe) && sfe.Line > 0 {
			sfe.Line++
		}
		return nil, err
	}
	return c, nil
}

// Build normalizes a metadata tree into a Component. A nil or empty tree
// yields a component without properties.
func Build(name, template string, meta *yaml.Node) (*Component, error) {
	c := &Component{Name: name, Template: template}

	root := document(meta)
	if isNull(root) {
		return c, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, formatErr("", root, "metadata must be a mapping, got %s", kindName(root))
	}

	entries, err := mappingEntries("", root)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		switch e.key {
		case "props":
			c.Properties, err = buildProperties(e.value)
		case "children":
			c.Children, err = buildChildren(e.value)
		case "name":
			if !isString(e.value) || strings.TrimSpace(e.value.Value) == "" {
				err = formatErr("name", e.value, "name must be a non-empty string")
			} else {
				c.Name = strings.TrimSpace(e.value.Value)
			}
		default:
			err = formatErr(e.key, e.keyNode, "unknown top-level key %q", e.key)
		}
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

func buildProperties(n *yaml.Node) ([]*Property, error) {
	n = resolve(n)
	if isNull(n) {
		return nil, nil
	}

	var entries []entry
	switch n.Kind {
	case yaml.MappingNode:
		var err error
		if entries, err = mappingEntries("props", n); err != nil {
			return nil, err
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			item = resolve(item)
			path := fmt.Sprintf("props[%d]", i)
			if item.Kind != yaml.MappingNode || len(item.Content) != 2 {
				return nil, formatErr(path, item, "property entry must be a single-key mapping")
			}
			es, err := mappingEntries(path, item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, es...)
		}
	default:
		return nil, formatErr("props", n, "props must be a mapping or a sequence, got %s", kindName(n))
	}

	props := make([]*Property, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.key] {
			return nil, formatErr("props."+e.key, e.keyNode, "property %q declared twice", e.key)
		}
		seen[e.key] = true

		p, err := buildProperty("props."+e.key, e.key, e.value)
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, nil
}

func buildProperty(path, name string, n *yaml.Node) (*Property, error) {
	p := &Property{Name: name}
	n = resolve(n)

	var specs, missing []*yaml.Node
	switch {
	case isNull(n):
		specs = []*yaml.Node{nil}
	case n.Kind == yaml.ScalarNode:
		if !isString(n) {
			return nil, formatErr(path, n, "unsupported %s scalar, expected a selector or a mapping", n.ShortTag())
		}
		specs = []*yaml.Node{n}
	case n.Kind == yaml.SequenceNode:
		specs = n.Content
	case n.Kind == yaml.MappingNode:
		entries, err := mappingEntries(path, n)
		if err != nil {
			return nil, err
		}

		var rule []entry
		var transformations *yaml.Node
		for _, e := range entries {
			switch e.key {
			case "missing":
				v := resolve(e.value)
				if v.Kind == yaml.SequenceNode {
					missing = append(missing, v.Content...)
				} else {
					missing = append(missing, v)
				}
			case "required":
				if err := e.value.Decode(&p.Required); err != nil {
					return nil, formatErr(path+".required", e.value, "required must be a boolean")
				}
			case "default":
				if err := e.value.Decode(&p.Default); err != nil {
					return nil, formatErr(path+".default", e.value, "invalid default: %v", err)
				}
				p.HasDefault = p.Default != nil
			case "transformations":
				transformations = e.value
			default:
				rule = append(rule, e)
			}
		}

		if transformations != nil {
			if len(rule) > 0 {
				return nil, formatErr(path+"."+rule[0].key, rule[0].keyNode,
					"%q cannot be combined with an explicit transformations list", rule[0].key)
			}
			t := resolve(transformations)
			switch {
			case isNull(t):
				return nil, formatErr(path+".transformations", t, "transformations must not be empty")
			case t.Kind == yaml.SequenceNode:
				specs = t.Content
			default:
				specs = []*yaml.Node{t}
			}
		} else {
			specs = []*yaml.Node{mappingOf(n, rule)}
		}
	default:
		return nil, formatErr(path, n, "unsupported property spec of kind %s", kindName(n))
	}

	hasSlot := false
	for _, s := range specs {
		if slotName(s) != "" {
			hasSlot = true
		}
	}
	// A slot reference is presence-sensitive unless a fallback covers absence.
	if hasSlot && len(missing) == 0 {
		p.Required = true
	}

	for i, s := range specs {
		tfPath := fmt.Sprintf("%s.transformations[%d]", path, i)
		tf, err := buildTransformation(tfPath, name, s, p.Required || slotName(s) != "")
		if err != nil {
			return nil, err
		}
		// An optional slot with fallbacks is guarded so the fallbacks
		// render when the caller leaves it out.
		if tf.Match == nil && !p.Required && len(missing) > 0 {
			tf.Match = &Condition{Property: name, Op: OpDefined}
		}
		p.Transformations = append(p.Transformations, tf)
	}
	if p.Required && len(p.Transformations) == 0 {
		return nil, formatErr(path, n, "required property %q has no transformation", name)
	}

	for i, m := range missing {
		fb, err := buildFallback(fmt.Sprintf("%s.missing[%d]", path, i), p, m)
		if err != nil {
			return nil, err
		}
		p.Missing = append(p.Missing, fb)
	}

	return p, nil
}

var transformationKeys = map[string]bool{
	"target":     true,
	"slot":       true,
	"innerHTML":  true,
	"outerHTML":  true,
	"attributes": true,
	"attribute":  true,
	"class":      true,
	"style":      true,
	"match":      true,
}

func buildTransformation(path, prop string, n *yaml.Node, required bool) (*Transformation, error) {
	tf := &Transformation{Property: prop, Target: RootTarget}
	n = resolve(n)

	switch {
	case isNull(n):
		tf.Inner = selfValue(prop)
	case isString(n):
		tf.Target = strings.TrimSpace(n.Value)
		if tf.Target == "" {
			return nil, formatErr(path, n, "empty target selector")
		}
		tf.Inner = selfValue(prop)
	case n.Kind == yaml.MappingNode:
		if err := readTransformation(path, prop, n, tf, &required); err != nil {
			return nil, err
		}
	default:
		return nil, formatErr(path, n, "transformation must be a mapping or a selector, got %s", kindName(n))
	}

	if tf.Match == nil && !required {
		tf.Match = &Condition{Property: prop, Op: OpDefined}
	}
	return tf, nil
}

func readTransformation(path, prop string, n *yaml.Node, tf *Transformation, required *bool) error {
	entries, err := mappingEntries(path, n)
	if err != nil {
		return err
	}
	fields := make(map[string]entry, len(entries))
	for _, e := range entries {
		if !transformationKeys[e.key] {
			return formatErr(path+"."+e.key, e.keyNode, "unknown transformation key %q", e.key)
		}
		fields[e.key] = e
	}

	if slot, ok := fields["slot"]; ok {
		if !isString(slot.value) || strings.TrimSpace(slot.value.Value) == "" {
			return formatErr(path+".slot", slot.value, "slot must be a non-empty name")
		}
		if _, ok := fields["target"]; ok {
			return formatErr(path+".target", fields["target"].keyNode, "target cannot be combined with slot")
		}
		if _, ok := fields["innerHTML"]; ok {
			return formatErr(path+".innerHTML", fields["innerHTML"].keyNode, "innerHTML cannot be combined with slot")
		}
		tf.Target = SlotTarget(strings.TrimSpace(slot.value.Value))
		tf.Outer = selfValue(prop)
		*required = true
	} else if target, ok := fields["target"]; ok {
		if !isString(target.value) || strings.TrimSpace(target.value.Value) == "" {
			return formatErr(path+".target", target.value, "target must be a non-empty selector")
		}
		tf.Target = strings.TrimSpace(target.value.Value)
	}

	if e, ok := fields["innerHTML"]; ok {
		if tf.Inner, err = parseValue(path+".innerHTML", prop, e.value, Replace); err != nil {
			return err
		}
	}
	if e, ok := fields["outerHTML"]; ok {
		if tf.Outer, err = parseValue(path+".outerHTML", prop, e.value, Replace); err != nil {
			return err
		}
	}

	if e, ok := fields["attributes"]; ok {
		attrs := resolve(e.value)
		if attrs.Kind != yaml.MappingNode {
			return formatErr(path+".attributes", attrs, "attributes must be a mapping")
		}
		aentries, err := mappingEntries(path+".attributes", attrs)
		if err != nil {
			return err
		}
		for _, a := range aentries {
			v, err := parseValue(path+".attributes."+a.key, prop, a.value, Append)
			if err != nil {
				return err
			}
			tf.Attributes = setAttribute(tf.Attributes, AttributeRule{Name: attributeName(a.key), Value: v})
		}
	}
	if e, ok := fields["attribute"]; ok {
		if !isString(e.value) || e.value.Value == "" {
			return formatErr(path+".attribute", e.value, "attribute must be an attribute name")
		}
		tf.Attributes = setAttribute(tf.Attributes, AttributeRule{
			Name:  attributeName(e.value.Value),
			Value: &Value{Template: "{" + prop + "}", Action: Replace},
		})
	}
	for _, key := range []string{"class", "style"} {
		e, ok := fields[key]
		if !ok || isNull(resolve(e.value)) {
			continue
		}
		v, err := parseValue(path+"."+key, prop, e.value, Append)
		if err != nil {
			return err
		}
		if v.Template == "" {
			continue
		}
		tf.Attributes = setAttribute(tf.Attributes, AttributeRule{Name: key, Value: v})
	}

	if e, ok := fields["match"]; ok {
		if tf.Match, err = parseCondition(path+".match", prop, e.value); err != nil {
			return err
		}
	}

	if len(tf.Attributes) == 0 && tf.Inner == nil && tf.Outer == nil {
		tf.Inner = selfValue(prop)
	}
	return nil
}

// buildFallback builds a rule applied when the property is undefined. It
// defaults to the first primary rule's target and content channel.
func buildFallback(path string, p *Property, n *yaml.Node) (*Transformation, error) {
	var first *Transformation
	if len(p.Transformations) > 0 {
		first = p.Transformations[0]
	}
	n = resolve(n)

	var tf *Transformation
	switch {
	case isNull(n):
		return nil, formatErr(path, n, "empty fallback")
	case isString(n):
		v := &Value{Template: expandSelf(n.Value, p.Name), Action: Replace}
		tf = &Transformation{Property: p.Name, Target: RootTarget}
		if first != nil {
			tf.Target = first.Target
		}
		if first != nil && first.Outer != nil && first.Inner == nil {
			tf.Outer = v
		} else {
			tf.Inner = v
		}
	case n.Kind == yaml.MappingNode:
		var err error
		if tf, err = buildTransformation(path, p.Name, n, true); err != nil {
			return nil, err
		}
		if !hasKey(n, "target") && slotName(n) == "" && first != nil {
			tf.Target = first.Target
		}
	default:
		return nil, formatErr(path, n, "fallback must be a mapping or a string, got %s", kindName(n))
	}

	tf.Match = &Condition{Property: p.Name, Op: OpUndefined, Operand: true}
	tf.Fallback = true
	return tf, nil
}

func buildChildren(n *yaml.Node) (*Transformation, error) {
	n = resolve(n)
	tf := &Transformation{Target: RootTarget, Inner: ChildrenValue(Replace)}

	switch {
	case isNull(n):
		return nil, nil
	case isString(n):
		tf.Target = strings.TrimSpace(n.Value)
		if tf.Target == "" {
			return nil, formatErr("children", n, "empty target selector")
		}
	case n.Kind == yaml.MappingNode:
		entries, err := mappingEntries("children", n)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !isString(e.value) || strings.TrimSpace(e.value.Value) == "" {
				return nil, formatErr("children."+e.key, e.value, "%s must be a non-empty string", e.key)
			}
			switch e.key {
			case "target":
				tf.Target = strings.TrimSpace(e.value.Value)
			case "slot":
				tf.Target = SlotTarget(strings.TrimSpace(e.value.Value))
				tf.Inner = nil
				tf.Outer = ChildrenValue(Replace)
			default:
				return nil, formatErr("children."+e.key, e.keyNode, "unknown children key %q", e.key)
			}
		}
	default:
		return nil, formatErr("children", n, "children must be a selector or a mapping, got %s", kindName(n))
	}
	return tf, nil
}

func parseValue(path, prop string, n *yaml.Node, action Action) (*Value, error) {
	n = resolve(n)
	if n.Kind == yaml.MappingNode {
		if len(n.Content) != 2 {
			return nil, formatErr(path, n, "value mapping must hold exactly one of append, prepend or replace")
		}
		a, ok := parseAction(n.Content[0].Value)
		if !ok {
			return nil, formatErr(path, n.Content[0], "unknown action %q", n.Content[0].Value)
		}
		action = a
		n = resolve(n.Content[1])
	}
	if n.Kind != yaml.ScalarNode {
		return nil, formatErr(path, n, "value must be a scalar, got %s", kindName(n))
	}

	text := ""
	if !isNull(n) {
		text = n.Value
	}
	return &Value{Template: expandSelf(text, prop), Action: action}, nil
}

func parseCondition(path, prop string, n *yaml.Node) (*Condition, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		operand, err := scalarValue(path, n)
		if err != nil {
			return nil, err
		}
		return &Condition{Property: prop, Op: OpEquals, Operand: operand}, nil
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return nil, formatErr(path, n, "match must hold exactly one operator")
		}
		op := Operator(n.Content[0].Value)
		operandNode := resolve(n.Content[1])
		if operandNode.Kind != yaml.ScalarNode {
			return nil, formatErr(path, operandNode, "operand of %s must be a scalar", op)
		}
		operand, err := scalarValue(path, operandNode)
		if err != nil {
			return nil, err
		}

		switch op {
		case OpEquals, OpNotEquals:
			return &Condition{Property: prop, Op: op, Operand: operand}, nil
		case OpUndefined, OpDefined, OpTruthy:
			flag, ok := operand.(bool)
			if !ok {
				return nil, formatErr(path, operandNode, "%s expects a boolean", op)
			}
			switch {
			case op == OpTruthy && !flag:
				return nil, formatErr(path, operandNode, "%s only accepts true", op)
			case op == OpUndefined && !flag:
				op = OpDefined
			case op == OpDefined && !flag:
				op = OpUndefined
			}
			return &Condition{Property: prop, Op: op}, nil
		default:
			return nil, formatErr(path, n.Content[0], "unknown operator %q", op)
		}
	}
	return nil, formatErr(path, n, "match must be a scalar or a mapping, got %s", kindName(n))
}

func selfValue(prop string) *Value {
	return &Value{Template: "{" + prop + "}", Action: Replace}
}

func expandSelf(text, prop string) string {
	return strings.ReplaceAll(text, "{}", "{"+prop+"}")
}

// attributeName maps metadata spellings like "aria_label" to markup names.
func attributeName(name string) string {
	name = strings.TrimSuffix(name, "_")
	return strings.ReplaceAll(name, "_", "-")
}

func setAttribute(rules []AttributeRule, rule AttributeRule) []AttributeRule {
	for i := range rules {
		if rules[i].Name == rule.Name {
			rules[i] = rule
			return rules
		}
	}
	return append(rules, rule)
}
