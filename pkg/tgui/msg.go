package tgui

import (
	"fmt"
	"html"
	"strings"
)

// Msg accumulates a message line by line.
type Msg struct {
	lines []string
}

// Line appends the non-blank parts joined by a space. A line with nothing
// visible is dropped.
func (m *Msg) Line(parts ...H) *Msg {
	if l := Join(" ", parts...); l != "" {
		m.lines = append(m.lines, string(l))
	}
	return m
}

// Linef appends a formatted line. String arguments are escaped, H arguments
// are inserted as is, anything else is formatted normally.
func (m *Msg) Linef(format string, args ...any) *Msg {
	for i, a := range args {
		switch v := a.(type) {
		case H:
			args[i] = string(v)
		case string:
			args[i] = html.EscapeString(v)
		case fmt.Stringer:
			args[i] = html.EscapeString(v.String())
		}
	}
	m.lines = append(m.lines, fmt.Sprintf(format, args...))
	return m
}

// Blank separates blocks with an empty line.
func (m *Msg) Blank() *Msg {
	if len(m.lines) > 0 && m.lines[len(m.lines)-1] != "" {
		m.lines = append(m.lines, "")
	}
	return m
}

func (m *Msg) String() string { return strings.Join(m.lines, "\n") }
