package jinja

import (
	"testing"

	"github.com/recera/uimacro/pkg/backend"
	"github.com/recera/uimacro/pkg/spec"
)

func TestRegistered(t *testing.T) {
	b, err := backend.Lookup("jinja")
	if err != nil {
		t.Fatalf("Lookup(jinja) failed: %v", err)
	}
	if b.Name() != "jinja" {
		t.Errorf("Name() = %q", b.Name())
	}
	if _, err := backend.Lookup("handlebars"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestHeader(t *testing.T) {
	b := &Backend{}
	tests := []struct {
		name   string
		macro  string
		params []backend.Param
		want   string
	}{
		{
			name:  "no params",
			macro: "divider",
			want:  "{% macro divider() -%}",
		},
		{
			name:  "required and optional",
			macro: "icon-button",
			params: []backend.Param{
				{Name: "label", Required: true},
				{Name: "aria-label", Required: true},
				{Name: "icon"},
				{Name: "size", Default: "md", HasDefault: true},
				{Name: "count", Default: 3, HasDefault: true},
			},
			want: "{% macro icon_button(label, aria_label, icon=None, size='md', count=3) -%}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Header(tt.macro, tt.params); got != tt.want {
				t.Errorf("Header() = %q, want %q", got, tt.want)
			}
		})
	}
	if got := b.Footer("x"); got != "{%- endmacro %}" {
		t.Errorf("Footer() = %q", got)
	}
}

func TestCondition(t *testing.T) {
	tests := []struct {
		cond spec.Condition
		want string
	}{
		{spec.Condition{Property: "variant", Op: spec.OpEquals, Operand: "primary"}, "variant == 'primary'"},
		{spec.Condition{Property: "level", Op: spec.OpNotEquals, Operand: 2}, "level != 2"},
		{spec.Condition{Property: "open", Op: spec.OpEquals, Operand: true}, "open == true"},
		{spec.Condition{Property: "icon-name", Op: spec.OpUndefined, Operand: true}, "not icon_name"},
		{spec.Condition{Property: "icon", Op: spec.OpDefined}, "icon"},
		{spec.Condition{Property: "icon", Op: spec.OpTruthy}, "icon"},
	}
	b := &Backend{}
	for _, tt := range tests {
		t.Run(tt.cond.String(), func(t *testing.T) {
			if got := b.GuardOpen(&tt.cond); got != "{% if "+tt.want+" %}" {
				t.Errorf("GuardOpen() = %q, want condition %q", got, tt.want)
			}
		})
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "None"},
		{false, "false"},
		{1.5, "1.5"},
		{"it's", `'it\'s'`},
		{[]any{"a", 1}, "['a', 1]"},
		{map[string]any{"b": 2, "a": "x"}, "{'a': 'x', 'b': 2}"},
	}
	for _, tt := range tests {
		if got := Literal(tt.in); got != tt.want {
			t.Errorf("Literal(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReference(t *testing.T) {
	b := &Backend{}
	if got := b.Reference("aria-label"); got != "{{ aria_label }}" {
		t.Errorf("Reference() = %q", got)
	}
}
