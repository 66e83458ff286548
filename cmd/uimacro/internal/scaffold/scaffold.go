// Package scaffold writes starter component files.
package scaffold

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// PropKind selects how a scaffolded property changes the markup
type PropKind string

const (
	// Text fills an inner element with the property value
	Text PropKind = "text"
	// Attribute sets an attribute named after the property on the root
	Attribute PropKind = "attribute"
	// Modifier appends a "<component>-<value>" class to the root
	Modifier PropKind = "class"
)

// Kinds lists the property kinds in display order
var Kinds = []PropKind{Text, Attribute, Modifier}

// Prop is one scaffolded property
type Prop struct {
	Name     string
	Kind     PropKind
	Required bool
}

// Component describes the file to generate
type Component struct {
	Name     string
	Tag      string
	Props    []Prop
	Slots    []string
	Children bool
}

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

var voidTags = map[string]bool{"br": true, "hr": true, "img": true, "input": true, "meta": true, "link": true}

// ParseProp parses the "name[:kind][!]" flag form; a trailing ! marks the
// property required.
func ParseProp(s string) (Prop, error) {
	p := Prop{Kind: Text}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "!") {
		p.Required = true
		s = strings.TrimSuffix(s, "!")
	}
	name, kind, ok := strings.Cut(s, ":")
	p.Name = name
	if ok {
		p.Kind = PropKind(kind)
	}
	return p, p.validate()
}

func (p Prop) validate() error {
	if !namePattern.MatchString(p.Name) {
		return fmt.Errorf("invalid property name %q", p.Name)
	}
	for _, k := range Kinds {
		if p.Kind == k {
			return nil
		}
	}
	return fmt.Errorf("unknown property kind %q for %s (want text, attribute or class)", p.Kind, p.Name)
}

// Validate checks names and fills the default tag.
func (c *Component) Validate() error {
	if !namePattern.MatchString(c.Name) {
		return fmt.Errorf("invalid component name %q: use lowercase letters, digits and dashes", c.Name)
	}
	if c.Tag == "" {
		c.Tag = "div"
	}
	if !namePattern.MatchString(c.Tag) {
		return fmt.Errorf("invalid tag %q", c.Tag)
	}
	if voidTags[c.Tag] {
		return fmt.Errorf("<%s> cannot hold content and cannot be a component root", c.Tag)
	}

	seen := make(map[string]bool)
	for _, p := range c.Props {
		if err := p.validate(); err != nil {
			return err
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate name %q", p.Name)
		}
		seen[p.Name] = true
	}
	for _, s := range c.Slots {
		if !namePattern.MatchString(s) {
			return fmt.Errorf("invalid slot name %q", s)
		}
		if seen[s] {
			return fmt.Errorf("duplicate name %q", s)
		}
		seen[s] = true
	}
	return nil
}

// Render returns the component file: front matter followed by markup.
func Render(c *Component) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var markup strings.Builder
	fmt.Fprintf(&markup, "<%s class=%q>\n", c.Tag, c.Name)

	props := mapping()
	for _, p := range c.Props {
		rule := mapping()
		if p.Required {
			add(rule, "required", scalar("true", "!!bool"))
		}
		switch p.Kind {
		case Attribute:
			add(rule, "attribute", scalar(p.Name, "!!str"))
		case Modifier:
			add(rule, "class", scalar(c.Name+"-{}", "!!str"))
		default:
			class := c.Name + "__" + p.Name
			add(rule, "target", scalar("."+class, "!!str"))
			fmt.Fprintf(&markup, "  <span class=%q></span>\n", class)
		}
		add(props, p.Name, rule)
	}
	for _, s := range c.Slots {
		fmt.Fprintf(&markup, "  <slot name=%q></slot>\n", s)
	}
	if c.Children {
		markup.WriteString("  <slot></slot>\n")
	}
	fmt.Fprintf(&markup, "</%s>\n", c.Tag)

	var out bytes.Buffer
	if len(props.Content) > 0 {
		doc := mapping()
		add(doc, "props", props)

		out.WriteString("---\n")
		enc := yaml.NewEncoder(&out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		out.WriteString("---\n")
	}
	out.WriteString(markup.String())
	return out.Bytes(), nil
}

// Write renders c into dir/<name><ext>. Existing files are kept unless force is set.
func Write(dir, ext string, c *Component, force bool) (string, error) {
	data, err := Render(c)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, c.Name+ext)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func scalar(value, tag string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	if tag == "!!str" && strings.ContainsAny(value, "{}.:#") {
		n.Style = yaml.DoubleQuotedStyle
	}
	return n
}

func add(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalar(key, "!!str"), value)
}
