package tgui

import (
	"strings"
	"testing"
	"time"
)

func TestBuildersEscape(t *testing.T) {
	tests := []struct {
		got  H
		want string
	}{
		{Bold("a<b"), "<b>a&lt;b</b>"},
		{Mono("x&y"), "<code>x&amp;y</code>"},
		{Anchor(`say "hi"`, "https://x/?a=1&b=2"), `<a href="https://x/?a=1&amp;b=2">say &#34;hi&#34;</a>`},
		{Join(" · ", Bold("a"), "", Italic("b")), "<b>a</b> · <i>b</i>"},
		{Label("Category", Text("A&B")), "<b>Category:</b> A&amp;B"},
	}
	for _, tt := range tests {
		if tt.got.String() != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestMsg(t *testing.T) {
	var m Msg
	m.Blank().Line(Bold("title")).Line("", "").
		Linef("%s took %s, %d items, id %s", "<x>", 1500*time.Millisecond, 3, Mono("ab")).
		Blank().Blank().Line(Text("end"))
	want := strings.Join([]string{
		"<b>title</b>",
		"&lt;x&gt; took 1.5s, 3 items, id <code>ab</code>",
		"",
		"end",
	}, "\n")
	if got := m.String(); got != want {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}
}

func TestVisibleLen(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"plain", 5},
		{"<b>bold</b>", 4},
		{`<a href="https://x/?a=1&amp;b=2">é&amp;</a>`, 2},
		{"1 &lt; 2", 5},
	}
	for _, tt := range tests {
		if got := VisibleLen(tt.in); got != tt.want {
			t.Errorf("VisibleLen(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"héllo", 3, "hél…"},
		{"hé", 3, "hé"},
		{"abc", 3, "abc"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Clip(tt.in, tt.n); got != tt.want {
			t.Errorf("Clip(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestLinkKeyboard(t *testing.T) {
	rm := LinkKeyboard("Open image", "https://cdn/a.png")
	if len(rm.InlineKeyboard) != 1 || rm.InlineKeyboard[0][0].URL != "https://cdn/a.png" {
		t.Fatalf("keyboard = %+v", rm.InlineKeyboard)
	}
}
