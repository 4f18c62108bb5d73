// Package watch runs the change-detection cycles: fetch, extract, diff,
// group, notify and persist, once per scheduled tick.
package watch

import (
	"context"

	"contentwatch/internal/notifier"
	kit "contentwatch/internal/transport"
	logx "contentwatch/pkg/logx"
)

// Fetcher retrieves decoded payloads; failed endpoints are absent from the
// result.
type Fetcher interface {
	FetchAll(ctx context.Context, endpoints []string) map[string]any
}

// Deliverer sends notifications sequentially.
type Deliverer interface {
	Deliver(ctx context.Context, ns []kit.Notification) notifier.Report
}

// Result describes one cycle of one job.
type Result struct {
	Endpoints int
	Fetched   int
	Changed   int
	Delivery  notifier.Report
	Saved     bool
}

// Job is one watcher variant driven by the loop.
type Job interface {
	Name() string
	Run(ctx context.Context, log logx.Logger) (Result, error)
}
