package watch

import (
	"time"

	"contentwatch/internal/notifier"
	"contentwatch/pkg/tgui"
)

// StatusHTML renders the /status reply.
func StatusHTML(l *Loop, n *notifier.Service, recent int, now time.Time) string {
	jobs, cycles, next := l.Stats()

	var m tgui.Msg
	m.Line(tgui.Bold("contentwatch"))
	if next.IsZero() {
		m.Linef("cycles: %d", cycles)
	} else {
		m.Linef("cycles: %d · next in %s", cycles, next.Sub(now).Round(time.Second))
	}
	if n != nil {
		sent, failed := n.Totals()
		m.Linef("sent: %d · failed: %d", sent, failed)
	}

	for _, st := range jobs {
		m.Blank().Line(tgui.Bold(st.Name))
		if st.Runs == 0 {
			m.Line(tgui.Italic("not run yet"))
			continue
		}
		m.Linef("last: %s ago (%s) · cycle %s",
			now.Sub(st.LastStart).Round(time.Second), st.LastTook.Round(time.Millisecond), tgui.Mono(st.LastCycle))
		m.Linef("fetched %d/%d · changed %d · sent %d · failed %d",
			st.Last.Fetched, st.Last.Endpoints, st.Last.Changed, st.Last.Delivery.Sent, st.Last.Delivery.Failed)
		m.Linef("total changed %d · sent %d · failed %d", st.TotalChanged, st.TotalSent, st.TotalFailed)
		if st.LastErr != "" {
			m.Line("error:", tgui.Mono(tgui.Clip(st.LastErr, 200)))
		}
	}

	if n == nil || recent <= 0 {
		return m.String()
	}
	hist := n.Snapshot()
	if len(hist) > recent {
		hist = hist[len(hist)-recent:]
	}
	if len(hist) == 0 {
		return m.String()
	}
	m.Blank().Line(tgui.Bold("recent"))
	for i := len(hist) - 1; i >= 0; i-- {
		h := hist[i]
		mark := "✅"
		if h.Error != "" {
			mark = "❌"
		}
		m.Linef("%s %s %s", mark, h.At.Format("15:04:05"), tgui.Clip(h.Title, 80))
	}
	return m.String()
}
