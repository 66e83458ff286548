package compiler

import (
	"strings"

	"github.com/recera/uimacro/pkg/backend"
	"github.com/recera/uimacro/pkg/markup"
	"github.com/recera/uimacro/pkg/spec"
)

type attrKind int

const (
	// literal values render as name="text", or a bare name when empty.
	literal attrKind = iota
	// fenced attributes are built from guarded fragments folded in rule order.
	fenced
)

type fragment struct {
	cond   *spec.Condition
	value  string
	action spec.Action
}

type attrValue struct {
	kind  attrKind
	text  string
	frags []fragment
}

// attrSet is the effective attribute list of one element in output order.
type attrSet struct {
	b      backend.Backend
	names  []string
	values map[string]*attrValue
}

func newAttrSet(b backend.Backend, n *markup.Node) *attrSet {
	s := &attrSet{b: b, values: make(map[string]*attrValue, len(n.Attrs))}
	for _, a := range n.Attrs {
		if _, dup := s.values[a.Name]; dup {
			continue
		}
		s.names = append(s.names, a.Name)
		s.values[a.Name] = &attrValue{kind: literal, text: markup.EscapeAttr(a.Value)}
	}
	return s
}

func (s *attrSet) apply(tf *spec.Transformation, name, v string, action spec.Action) {
	cur, ok := s.values[name]
	if !ok {
		s.names = append(s.names, name)
		if tf.Conditional() {
			s.values[name] = &attrValue{kind: fenced, frags: []fragment{{cond: tf.Match, value: v, action: action}}}
		} else {
			s.values[name] = &attrValue{kind: literal, text: v}
		}
		return
	}

	if cur.kind == fenced {
		if tf.Conditional() {
			cur.frags = append(cur.frags, fragment{cond: tf.Match, value: v, action: action})
			return
		}
		var sb strings.Builder
		switch action {
		case spec.Append:
			for _, f := range cur.frags {
				sb.WriteString(s.b.GuardOpen(f.cond) + f.value + " " + s.b.GuardClose())
			}
			sb.WriteString(v)
		case spec.Prepend:
			sb.WriteString(v)
			for _, f := range cur.frags {
				sb.WriteString(s.b.GuardOpen(f.cond) + " " + f.value + s.b.GuardClose())
			}
		default:
			sb.WriteString(v)
		}
		s.values[name] = &attrValue{kind: literal, text: sb.String()}
		return
	}

	switch action {
	case spec.Append:
		cur.text += s.fence(tf, " "+v)
	case spec.Prepend:
		cur.text = s.fence(tf, v+" ") + cur.text
	default:
		if tf.Conditional() {
			cur.text = s.b.GuardOpen(tf.Match) + v + s.b.GuardElse() + cur.text + s.b.GuardClose()
		} else {
			cur.text = v
		}
	}
}

func (s *attrSet) fence(tf *spec.Transformation, v string) string {
	if !tf.Conditional() {
		return v
	}
	return s.b.GuardOpen(tf.Match) + v + s.b.GuardClose()
}

// render returns the attributes with a leading space, or "" when there are none.
func (s *attrSet) render() string {
	var sb strings.Builder
	for _, name := range s.names {
		v := s.values[name]
		switch v.kind {
		case fenced:
			sb.WriteByte(' ')
			if len(v.frags) == 1 {
				f := v.frags[0]
				sb.WriteString(s.b.GuardOpen(f.cond) + attr(name, f.value) + s.b.GuardClose())
				continue
			}
			sb.WriteString(name + `="` + s.fold(v.frags) + `"`)
		default:
			sb.WriteByte(' ')
			sb.WriteString(attr(name, v.text))
		}
	}
	return sb.String()
}

// fold merges the guarded fragments of an attribute the element lacks into one
// value. Fragments after the first are separated by a space inside their guard.
func (s *attrSet) fold(frags []fragment) string {
	var text string
	for i, f := range frags {
		sep := ""
		if i > 0 {
			sep = " "
		}
		switch f.action {
		case spec.Prepend:
			text = s.b.GuardOpen(f.cond) + f.value + sep + s.b.GuardClose() + text
		case spec.Replace:
			text = s.b.GuardOpen(f.cond) + f.value + s.b.GuardElse() + text + s.b.GuardClose()
		default:
			text += s.b.GuardOpen(f.cond) + sep + f.value + s.b.GuardClose()
		}
	}
	return text
}

func attr(name, value string) string {
	if value == "" {
		return name
	}
	return name + `="` + value + `"`
}
