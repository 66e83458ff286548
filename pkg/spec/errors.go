package spec

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpecFormatError reports metadata whose shape cannot be turned into rules.
type SpecFormatError struct {
	// Path locates the offending entry, e.g. "props.icon.missing[0]".
	Path string
	Line int
	Msg  string
}

func (e *SpecFormatError) Error() string {
	var b strings.Builder
	b.WriteString("spec format")
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	return b.String()
}

func formatErr(path string, node *yaml.Node, format string, args ...any) error {
	e := &SpecFormatError{Path: path, Msg: fmt.Sprintf(format, args...)}
	if node != nil {
		e.Line = node.Line
	}
	return e
}
