package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

type entry struct {
	key     string
	keyNode *yaml.Node
	value   *yaml.Node
}

// document unwraps a document node to its single root value.
func document(n *yaml.Node) *yaml.Node {
	if n == nil || n.Kind == 0 {
		return nil
	}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil
		}
		return resolve(n.Content[0])
	}
	return resolve(n)
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func isString(n *yaml.Node) bool {
	n = resolve(n)
	return n != nil && n.Kind == yaml.ScalarNode && n.ShortTag() == "!!str"
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar " + n.ShortTag()
	case yaml.AliasNode:
		return "alias"
	}
	return "nothing"
}

// mappingEntries lists the key/value pairs of a mapping in document order.
func mappingEntries(path string, n *yaml.Node) ([]entry, error) {
	entries := make([]entry, 0, len(n.Content)/2)
	seen := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := resolve(n.Content[i])
		if k.Kind != yaml.ScalarNode {
			return nil, formatErr(path, k, "mapping keys must be scalars")
		}
		if seen[k.Value] {
			return nil, formatErr(join(path, k.Value), k, "duplicate key %q", k.Value)
		}
		seen[k.Value] = true
		entries = append(entries, entry{key: k.Value, keyNode: k, value: n.Content[i+1]})
	}
	return entries, nil
}

// mappingOf builds a mapping node from a subset of another mapping's entries.
func mappingOf(from *yaml.Node, entries []entry) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Line: from.Line, Column: from.Column}
	for _, e := range entries {
		m.Content = append(m.Content, e.keyNode, e.value)
	}
	return m
}

func hasKey(n *yaml.Node, key string) bool {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

// slotName returns the slot a transformation spec refers to, if any.
func slotName(n *yaml.Node) string {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "slot" {
			return strings.TrimSpace(resolve(n.Content[i+1]).Value)
		}
	}
	return ""
}

func scalarValue(path string, n *yaml.Node) (any, error) {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, formatErr(path, n, "invalid scalar: %v", err)
	}
	return v, nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
