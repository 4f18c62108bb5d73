package tgui

import (
	"html"
	"strings"
)

// H is HTML that is safe to send with ParseMode=HTML.
type H string

func (h H) String() string { return string(h) }

func Text(s string) H   { return H(html.EscapeString(s)) }
func Bold(s string) H   { return tag("b", s) }
func Italic(s string) H { return tag("i", s) }
func Mono(s string) H   { return tag("code", s) }

func tag(name, s string) H {
	return H("<" + name + ">" + html.EscapeString(s) + "</" + name + ">")
}

// Anchor links text to href. Both are escaped.
func Anchor(text, href string) H {
	return H(`<a href="` + html.EscapeString(href) + `">` + html.EscapeString(text) + `</a>`)
}

// Label renders "<b>name:</b> value".
func Label(name string, value H) H {
	return Join(" ", Bold(name+":"), value)
}

// Join concatenates the non-blank parts with sep.
func Join(sep string, parts ...H) H {
	var b strings.Builder
	for _, p := range parts {
		if strings.TrimSpace(string(p)) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(string(p))
	}
	return H(b.String())
}
