package app

import (
	"strings"
	"time"

	"contentwatch/internal/runtime/supervisor"
	"contentwatch/internal/watch"
	"contentwatch/pkg/tgui"
)

const statusRecent = 10

// statusReply is the /status command: watcher state, then background tasks
// that restarted or are no longer running.
func (a *App) statusReply() string {
	now := time.Now()
	out := watch.StatusHTML(a.loop, a.notif, statusRecent, now)
	if a.sup == nil {
		return out
	}
	if tasks := taskLines(a.sup.Tasks(), now); tasks != "" {
		out += "\n\n" + tasks
	}
	return out
}

func taskLines(tasks []supervisor.TaskStatus, now time.Time) string {
	var m tgui.Msg
	for _, t := range tasks {
		if t.Running && t.Restarts == 0 {
			continue
		}
		state := "up"
		if !t.Running {
			state = "stopped"
		}
		m.Linef("%s %s · restarts %d · %s", tgui.Mono(t.Name), state, t.Restarts, now.Sub(t.Since).Round(time.Second))
		if t.LastErr != "" {
			m.Line(tgui.Italic(tgui.Clip(t.LastErr, 120)))
		}
	}
	body := m.String()
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return string(tgui.Bold("tasks")) + "\n" + body
}
