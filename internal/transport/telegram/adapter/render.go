package adapter

import (
	"strings"

	kit "contentwatch/internal/transport"
	"contentwatch/pkg/tgui"
)

const (
	telegramTextLimit = 4000
	// Telegram rejects photo captions longer than 1024 characters.
	captionLimit = 1024
)

// renderNotification formats n as Telegram HTML. Consecutive inline fields
// share a line.
func renderNotification(n kit.Notification) string {
	var m tgui.Msg
	if n.Title != "" {
		m.Line(tgui.Bold(n.Title))
	}
	if d := strings.TrimSpace(n.Description); isURL(d) {
		m.Line(tgui.Anchor(d, d))
	} else {
		m.Line(tgui.Text(d))
	}

	var inline []tgui.H
	for _, f := range n.Fields {
		if f.Inline {
			inline = append(inline, renderField(f))
			continue
		}
		m.Line(tgui.Join(" · ", inline...))
		inline = nil
		m.Line(renderField(f))
	}
	m.Line(tgui.Join(" · ", inline...))
	return m.String()
}

func renderField(f kit.Field) tgui.H {
	val := tgui.Text(f.Value)
	if f.URL != "" {
		text := f.Value
		if text == "" {
			text = f.URL
		}
		val = tgui.Anchor(text, f.URL)
	}
	if f.Name == "" {
		return val
	}
	return tgui.Label(f.Name, val)
}

func isURL(s string) bool {
	return !strings.ContainsAny(s, " \n\t") && (strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://"))
}

// captionFits counts what Telegram counts: the text after entity parsing.
func captionFits(html string) bool {
	return tgui.VisibleLen(html) <= captionLimit
}

// splitTelegramText splits long messages into chunks that are safe to send to Telegram.
// It prefers newline boundaries and (best-effort) avoids splitting inside HTML tags when ParseMode is HTML.
func splitTelegramText(s string, limit int, parseMode string) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))

		// Prefer splitting on a newline near the end of the window.
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// Avoid extremely small chunks.
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		// Best-effort: don't split inside a tag for HTML parse mode.
		if strings.EqualFold(parseMode, "HTML") && end < len(rs) {
			lastOpen, lastClose := -1, -1
			for i := start; i < end; i++ {
				switch rs[i] {
				case '<':
					lastOpen = i
				case '>':
					lastClose = i
				}
			}
			if lastOpen > lastClose && lastOpen > start+1 {
				end = lastOpen
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))

		start = end
		// Skip leading newlines to avoid empty chunks.
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
