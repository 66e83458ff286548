package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/recera/uimacro/cmd/uimacro/internal/scaffold"
)

// Step represents the current step in the creation flow
type Step int

const (
	StepName Step = iota
	StepTag
	StepProps
	StepSlots
	StepChildren
	StepSummary
	StepComplete
)

// KeyMap defines the wizard's keyboard shortcuts
type KeyMap struct {
	Enter key.Binding
	Yes   key.Binding
	No    key.Binding
	Back  key.Binding
	Quit  key.Binding
}

var DefaultKeyMap = KeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
	),
	Yes: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "yes"),
	),
	No: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "no"),
	),
	Back: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
}

// Model is the component creation wizard
type Model struct {
	step      Step
	input     textinput.Model
	component scaffold.Component
	errMsg    string
	quitting  bool
}

// NewModel starts the wizard, prefilled with name when given
func NewModel(name string) Model {
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 40
	ti.Focus()

	m := Model{input: ti}
	m.enter(StepName)
	if name != "" {
		m.input.SetValue(name)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, DefaultKeyMap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(keyMsg, DefaultKeyMap.Back):
		if m.step > StepName {
			m.enter(m.step - 1)
		}
		return m, nil
	case key.Matches(keyMsg, DefaultKeyMap.Enter):
		return m.confirm()
	}

	if m.step == StepChildren {
		switch {
		case key.Matches(keyMsg, DefaultKeyMap.Yes):
			m.component.Children = true
		case key.Matches(keyMsg, DefaultKeyMap.No):
			m.component.Children = false
		}
		return m, nil
	}
	if m.step == StepSummary {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) confirm() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	m.errMsg = ""

	switch m.step {
	case StepName:
		c := m.component
		c.Name = value
		if err := c.Validate(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.component.Name = value
		m.enter(StepTag)

	case StepTag:
		c := m.component
		c.Tag = value
		if err := c.Validate(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.component.Tag = c.Tag
		m.enter(StepProps)

	case StepProps:
		if value == "" {
			m.enter(StepSlots)
			return m, nil
		}
		p, err := scaffold.ParseProp(value)
		if err == nil {
			c := m.component
			c.Props = append(append([]scaffold.Prop(nil), c.Props...), p)
			err = c.Validate()
		}
		if err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.component.Props = append(m.component.Props, p)
		m.input.SetValue("")

	case StepSlots:
		if value == "" {
			m.enter(StepChildren)
			return m, nil
		}
		c := m.component
		c.Slots = append(append([]string(nil), c.Slots...), value)
		if err := c.Validate(); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.component.Slots = append(m.component.Slots, value)
		m.input.SetValue("")

	case StepChildren:
		m.enter(StepSummary)

	case StepSummary:
		m.step = StepComplete
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) enter(step Step) {
	m.step = step
	m.input.SetValue("")
	switch step {
	case StepName:
		m.input.Placeholder = "button"
		m.input.SetValue(m.component.Name)
	case StepTag:
		m.input.Placeholder = "div"
		m.input.SetValue(m.component.Tag)
	case StepProps:
		m.input.Placeholder = "label!  href:attribute  tone:class"
	case StepSlots:
		m.input.Placeholder = "header"
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("uimacro · new component"))
	b.WriteString("\n")

	switch m.step {
	case StepName:
		b.WriteString(subtitleStyle.Render("Component name (lowercase, dashes allowed)") + "\n\n")
		b.WriteString(m.input.View())
	case StepTag:
		b.WriteString(subtitleStyle.Render("Root element tag") + "\n\n")
		b.WriteString(m.input.View())
	case StepProps:
		b.WriteString(subtitleStyle.Render("Add properties as name[:text|attribute|class][!] (empty line to continue)") + "\n\n")
		for _, p := range m.component.Props {
			b.WriteString(selectedStyle.Render("  • "+describeProp(p)) + "\n")
		}
		b.WriteString(m.input.View())
	case StepSlots:
		b.WriteString(subtitleStyle.Render("Add named slots (empty line to continue)") + "\n\n")
		for _, s := range m.component.Slots {
			b.WriteString(selectedStyle.Render("  • "+s) + "\n")
		}
		b.WriteString(m.input.View())
	case StepChildren:
		b.WriteString(subtitleStyle.Render("Accept caller children through an unnamed slot?") + "\n\n")
		b.WriteString(checkbox(m.component.Children) + " children")
	case StepSummary, StepComplete:
		b.WriteString(Box(m.summary()))
	}

	if m.errMsg != "" {
		b.WriteString("\n\n" + errorStyle.Render("✗ "+m.errMsg))
	}
	b.WriteString("\n\n" + helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name:     %s\n", m.component.Name)
	fmt.Fprintf(&b, "Tag:      <%s>\n", m.component.Tag)
	if len(m.component.Props) == 0 {
		b.WriteString("Props:    none\n")
	}
	for i, p := range m.component.Props {
		label := "          "
		if i == 0 {
			label = "Props:    "
		}
		b.WriteString(label + describeProp(p) + "\n")
	}
	fmt.Fprintf(&b, "Slots:    %s\n", strings.Join(append([]string{}, m.component.Slots...), ", "))
	fmt.Fprintf(&b, "Children: %v", m.component.Children)
	return b.String()
}

func (m Model) help() string {
	switch m.step {
	case StepChildren:
		return "y/n toggle • enter continue • shift+tab back • esc quit"
	case StepSummary:
		return "enter create • shift+tab back • esc quit"
	}
	return "enter confirm • shift+tab back • esc quit"
}

func describeProp(p scaffold.Prop) string {
	s := fmt.Sprintf("%s (%s)", p.Name, p.Kind)
	if p.Required {
		s += " required"
	}
	return s
}

func checkbox(on bool) string {
	if on {
		return selectedStyle.Render("[x]")
	}
	return mutedStyle.Render("[ ]")
}

// Component returns the collected component once the wizard completed.
func (m Model) Component() (scaffold.Component, bool) {
	return m.component, m.step == StepComplete
}

// RunWizard runs the interactive creation flow.
func RunWizard(name string) (scaffold.Component, error) {
	if !isatty() {
		return scaffold.Component{}, fmt.Errorf("not running in a terminal, pass flags instead of -i")
	}

	final, err := tea.NewProgram(NewModel(name)).Run()
	if err != nil {
		return scaffold.Component{}, fmt.Errorf("TUI error: %w", err)
	}

	c, ok := final.(Model).Component()
	if !ok {
		return scaffold.Component{}, fmt.Errorf("component creation cancelled")
	}
	return c, nil
}

// isatty checks if we're running in a terminal
func isatty() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
