package watch

import (
	"context"

	"contentwatch/internal/diff"
	"contentwatch/internal/extract"
	kit "contentwatch/internal/transport"
	logx "contentwatch/pkg/logx"
)

// ShopWatcher tracks the shop sections of a single endpoint.
type ShopWatcher struct {
	endpoint string
	fetch    Fetcher
	notify   Deliverer
	snap     *Snapshot[[]extract.Section]
}

func NewShopWatcher(endpoint string, f Fetcher, d Deliverer, snap *Snapshot[[]extract.Section]) *ShopWatcher {
	return &ShopWatcher{endpoint: endpoint, fetch: f, notify: d, snap: snap}
}

func (w *ShopWatcher) Name() string { return "shop" }

// Run notifies every new or modified section and, if there was any, replaces
// the snapshot with the full fetched list.
func (w *ShopWatcher) Run(ctx context.Context, log logx.Logger) (Result, error) {
	res := Result{Endpoints: 1}

	prev := w.snap.Load(ctx)
	payloads := w.fetch.FetchAll(ctx, []string{w.endpoint})
	payload, ok := payloads[w.endpoint]
	if !ok {
		log.Debug("no shop data this cycle")
		return res, nil
	}
	res.Fetched = 1

	next := extract.ShopSections(payload)
	changed := diff.Sections(next, prev)
	res.Changed = len(changed)
	log.Debug("shop diff", logx.Int("sections", len(next)), logx.Int("changed", len(changed)))
	if len(changed) == 0 {
		return res, nil
	}

	ns := make([]kit.Notification, 0, len(changed))
	for _, s := range changed {
		ns = append(ns, sectionNotification(s))
	}
	res.Delivery = w.notify.Deliver(ctx, ns)

	if next == nil {
		next = []extract.Section{}
	}
	if err := w.snap.Save(ctx, next); err != nil {
		return res, err
	}
	res.Saved = true
	return res, nil
}
