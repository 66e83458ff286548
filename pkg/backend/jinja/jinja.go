// Package jinja emits Jinja macros.
package jinja

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/recera/uimacro/pkg/backend"
	"github.com/recera/uimacro/pkg/spec"
)

func init() {
	backend.Register(&Backend{})
}

// Backend renders components as `{% macro %}` blocks
type Backend struct{}

func (b *Backend) Name() string {
	return "jinja"
}

func (b *Backend) Description() string {
	return "Jinja2 macros called with {% call %} for children"
}

func (b *Backend) Header(name string, params []backend.Param) string {
	args := make([]string, 0, len(params))
	for _, p := range params {
		if p.Required {
			args = append(args, Identifier(p.Name))
			continue
		}
		def := "None"
		if p.HasDefault {
			def = Literal(p.Default)
		}
		args = append(args, Identifier(p.Name)+"="+def)
	}
	return fmt.Sprintf("{%% macro %s(%s) -%%}", Identifier(name), strings.Join(args, ", "))
}

func (b *Backend) Footer(string) string {
	return "{%- endmacro %}"
}

func (b *Backend) GuardOpen(cond *spec.Condition) string {
	return "{% if " + Condition(cond) + " %}"
}

func (b *Backend) GuardElse() string {
	return "{% else %}"
}

func (b *Backend) GuardClose() string {
	return "{% endif %}"
}

func (b *Backend) Reference(prop string) string {
	return "{{ " + Identifier(prop) + " }}"
}

func (b *Backend) Passthrough() string {
	return "{{ caller() }}"
}

// Condition renders a guard expression.
func Condition(c *spec.Condition) string {
	prop := Identifier(c.Property)
	switch c.Op {
	case spec.OpEquals:
		return prop + " == " + Literal(c.Operand)
	case spec.OpNotEquals:
		return prop + " != " + Literal(c.Operand)
	case spec.OpUndefined:
		return "not " + prop
	default:
		return prop
	}
}

// Identifier maps a property or component name to a Jinja identifier.
func Identifier(name string) string {
	var sb strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}

// Literal renders a metadata value as a Jinja expression.
func Literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return quote(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = Literal(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = quote(k) + ": " + Literal(v[k])
		}
		return "{" + strings.Join(items, ", ") + "}"
	default:
		return quote(fmt.Sprint(v))
	}
}

var quoter = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)

func quote(s string) string {
	return "'" + quoter.Replace(s) + "'"
}
