// Package markup parses component templates into an arena of nodes addressed
// by stable integer ids, so rules can be attached to nodes without keying maps
// on pointers into the parser's tree.
package markup

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NodeID identifies a node within its Tree. Ids follow document order.
type NodeID int

// NoNode is the id of a missing node
const NoNode NodeID = -1

// Kind is the type of a node
type Kind int

const (
	ElementNode Kind = iota
	TextNode
	CommentNode
)

// Attr is a single attribute in source order
type Attr struct {
	Name  string
	Value string
}

// Node is an element, text or comment in the arena.
type Node struct {
	ID       NodeID
	Kind     Kind
	Tag      string
	Attrs    []Attr
	Text     string
	Parent   NodeID
	Children []NodeID
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Void reports whether the element never has a closing tag.
func (n *Node) Void() bool {
	return n.Kind == ElementNode && voidElements[n.Tag]
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// ParseError reports a template without exactly one top-level element.
type ParseError struct {
	Elements int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("markup must contain exactly one top-level element, found %d", e.Elements)
}

// SelectorError reports a selector that cannot be compiled.
type SelectorError struct {
	Selector string
	Err      error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("invalid selector %q: %v", e.Selector, e.Err)
}

func (e *SelectorError) Unwrap() error { return e.Err }

// Tree is a parsed template fragment.
type Tree struct {
	nodes []Node
	root  NodeID
	ids   map[*html.Node]NodeID
	doc   *html.Node
}

// fragmentContext maps table parts to the element they may appear in. Parsed
// in body context the HTML parser drops them.
var fragmentContext = map[string]string{
	"tr":       "tbody",
	"td":       "tr",
	"th":       "tr",
	"thead":    "table",
	"tbody":    "table",
	"tfoot":    "table",
	"caption":  "table",
	"colgroup": "table",
	"col":      "colgroup",
}

// contextFor picks the parse context from the first start tag of src.
func contextFor(src string) *html.Node {
	name := "body"
	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			tag, _ := z.TagName()
			if ctx, ok := fragmentContext[strings.ToLower(string(tag))]; ok {
				name = ctx
			}
			break
		}
	}
	return &html.Node{Type: html.ElementNode, Data: name, DataAtom: atom.Lookup([]byte(name))}
}

// Parse parses a template fragment. Table parts are parsed in the context
// they require; everything else in body context.
func Parse(src string) (*Tree, error) {
	fragment, err := html.ParseFragment(strings.NewReader(src), contextFor(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	doc := &html.Node{Type: html.DocumentNode}
	for _, n := range fragment {
		doc.AppendChild(n)
	}

	t := &Tree{root: NoNode, ids: make(map[*html.Node]NodeID), doc: doc}
	var elements []NodeID
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		id := t.add(c, NoNode)
		if id != NoNode && t.nodes[id].Kind == ElementNode {
			elements = append(elements, id)
		}
	}
	if len(elements) != 1 {
		return nil, &ParseError{Elements: len(elements)}
	}
	t.root = elements[0]

	return t, nil
}

func (t *Tree) add(n *html.Node, parent NodeID) NodeID {
	node := Node{ID: NodeID(len(t.nodes)), Parent: parent}
	switch n.Type {
	case html.ElementNode:
		node.Kind = ElementNode
		node.Tag = n.Data
		for _, a := range n.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			node.Attrs = append(node.Attrs, Attr{Name: name, Value: a.Val})
		}
	case html.TextNode:
		node.Kind = TextNode
		node.Text = n.Data
	case html.CommentNode:
		node.Kind = CommentNode
		node.Text = n.Data
	default:
		return NoNode
	}

	id := node.ID
	t.nodes = append(t.nodes, node)
	t.ids[n] = id
	if parent != NoNode {
		t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		t.add(c, id)
	}
	return id
}

// Root returns the single top-level element.
func (t *Tree) Root() NodeID { return t.root }

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node { return &t.nodes[id] }

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// SelectFirst returns the first node in document order matching selector.
func (t *Tree) SelectFirst(selector string) (NodeID, bool, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return NoNode, false, &SelectorError{Selector: selector, Err: err}
	}
	n := sel.MatchFirst(t.doc)
	if n == nil {
		return NoNode, false, nil
	}
	id, ok := t.ids[n]
	return id, ok, nil
}

// SelectAll returns every node matching selector in document order.
func (t *Tree) SelectAll(selector string) ([]NodeID, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, &SelectorError{Selector: selector, Err: err}
	}
	var ids []NodeID
	for _, n := range sel.MatchAll(t.doc) {
		if id, ok := t.ids[n]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Slots returns every <slot> element in document order.
func (t *Tree) Slots() []NodeID {
	var ids []NodeID
	for i := range t.nodes {
		if t.nodes[i].Kind == ElementNode && t.nodes[i].Tag == "slot" {
			ids = append(ids, t.nodes[i].ID)
		}
	}
	return ids
}
