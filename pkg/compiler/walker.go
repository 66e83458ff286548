package compiler

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/recera/uimacro/pkg/backend"
	"github.com/recera/uimacro/pkg/markup"
	"github.com/recera/uimacro/pkg/spec"
)

// ErrGuardNesting means guards opened while rendering one element were not
// closed by that same element.
var ErrGuardNesting = errors.New("guard blocks are not well nested")

const indentUnit = "    "

var placeholder = regexp.MustCompile(`\{([A-Za-z_][\w-]*)\}`)

// rawText elements keep their text content unescaped.
var rawText = map[string]bool{"script": true, "style": true}

// frame records the walker state on entry to an element.
type frame struct {
	node  markup.NodeID
	depth int
	open  int
}

type walker struct {
	b      backend.Backend
	ms     *MatchSet
	comp   string
	lines  []string
	depth  int
	frames []frame
	diags  []Diagnostic
	// open counts guard blocks opened and not yet closed.
	open int
}

func (w *walker) emit(line string) {
	if line == "" {
		return
	}
	w.lines = append(w.lines, strings.Repeat(indentUnit, w.depth)+line)
}

// closes returns n guard closes and takes them off the open count.
func (w *walker) closes(n int) string {
	w.open -= n
	return strings.Repeat(w.b.GuardClose(), n)
}

// pop leaves the element id. Depth and open guards must be back to what
// they were on entry.
func (w *walker) pop(id markup.NodeID) error {
	top := len(w.frames) - 1
	if top < 0 {
		return ErrGuardNesting
	}
	f := w.frames[top]
	if f.node != id || f.depth != w.depth || f.open != w.open {
		return ErrGuardNesting
	}
	w.frames = w.frames[:top]
	return nil
}

func (w *walker) walk(id markup.NodeID) error {
	n := w.ms.Tree.Node(id)
	switch n.Kind {
	case markup.TextNode:
		text := strings.TrimSpace(n.Text)
		if text == "" {
			return nil
		}
		if parent := n.Parent; parent == markup.NoNode || !rawText[w.ms.Tree.Node(parent).Tag] {
			text = markup.EscapeText(text)
		}
		w.emit(text)
		return nil
	case markup.CommentNode:
		w.emit("<!--" + n.Text + "-->")
		return nil
	}
	return w.element(n)
}

// element renders one element and its subtree. Guards chain in rule order:
// a conditional replacement opens if/else at the replace point and the
// matching closes are emitted with the close tag, inner before outer.
func (w *walker) element(n *markup.Node) error {
	attrs := newAttrSet(w.b, n)
	var (
		outer, outerAppend string
		inner, innerAppend string
		outerOpen, innerOpen int
		innerFixed           bool
	)

	for _, tf := range w.ms.For(n.ID) {
		if tf.Outer != nil {
			v := w.value(tf.Outer, nil)
			switch tf.Outer.Action {
			case spec.Prepend:
				outer = w.fence(tf, v) + outer
			case spec.Append:
				outerAppend += w.fence(tf, v)
			default:
				if !tf.Conditional() {
					// The node collapses to the replacement; later
					// alternatives never render.
					w.emit(outer + v + strings.Repeat(w.b.GuardClose(), outerOpen) + outerAppend)
					return nil
				}
				outer += w.b.GuardOpen(tf.Match) + v + w.b.GuardElse()
				outerOpen++
			}
		}

		if tf.Inner != nil {
			if n.Void() {
				w.diags = append(w.diags, Diagnostic{
					Component: w.comp,
					Property:  tf.Property,
					Target:    tf.Target,
					Message:   fmt.Sprintf("<%s> cannot hold content, inner rule ignored", n.Tag),
				})
			} else {
				v := w.value(tf.Inner, nil)
				switch tf.Inner.Action {
				case spec.Prepend:
					inner = w.fence(tf, v) + inner
				case spec.Append:
					innerAppend += w.fence(tf, v)
				default:
					switch {
					case innerFixed:
					case tf.Conditional():
						inner += w.b.GuardOpen(tf.Match) + v + w.b.GuardElse()
						innerOpen++
					default:
						inner += v
						innerFixed = true
					}
				}
			}
		}

		for _, rule := range tf.Attributes {
			v := strings.TrimSpace(w.value(rule.Value, markup.EscapeAttr))
			attrs.apply(tf, rule.Name, v, rule.Value.Action)
		}
	}

	w.frames = append(w.frames, frame{node: n.ID, depth: w.depth, open: w.open})
	w.open += outerOpen + innerOpen
	start := len(w.lines)
	w.emit(outer + "<" + n.Tag + attrs.render() + ">" + inner)

	if !innerFixed {
		w.depth++
		for _, child := range n.Children {
			if err := w.walk(child); err != nil {
				return err
			}
		}
		w.depth--
	}

	closing := w.closes(innerOpen) + innerAppend
	if !n.Void() {
		closing += "</" + n.Tag + ">"
	}
	closing += w.closes(outerOpen) + outerAppend
	if err := w.pop(n.ID); err != nil {
		return fmt.Errorf("%s: <%s>: %w", w.comp, n.Tag, err)
	}

	if len(w.lines) == start+1 {
		w.lines[start] += closing
	} else {
		w.emit(closing)
	}
	return nil
}

func (w *walker) fence(tf *spec.Transformation, v string) string {
	if !tf.Conditional() {
		return v
	}
	return w.b.GuardOpen(tf.Match) + v + w.b.GuardClose()
}

// value interpolates a value template. Literal text passes through escape
// when given; `{name}` placeholders become property references unless they
// are part of a `{{ }}` expression.
func (w *walker) value(v *spec.Value, escape func(string) string) string {
	if v.Children {
		return w.b.Passthrough()
	}
	if escape == nil {
		escape = func(s string) string { return s }
	}

	src := v.Template
	var sb strings.Builder
	last := 0
	for _, m := range placeholder.FindAllStringSubmatchIndex(src, -1) {
		start, end := m[0], m[1]
		if start > 0 && src[start-1] == '{' || end < len(src) && src[end] == '}' {
			continue
		}
		sb.WriteString(escape(src[last:start]))
		sb.WriteString(w.b.Reference(src[m[2]:m[3]]))
		last = end
	}
	sb.WriteString(escape(src[last:]))
	return sb.String()
}
