package watch

import (
	"context"

	"contentwatch/internal/billboard"
	"contentwatch/internal/diff"
	"contentwatch/internal/extract"
	kit "contentwatch/internal/transport"
	logx "contentwatch/pkg/logx"
)

type AssetOptions struct {
	Endpoints       []string
	MaxDepth        int
	PlaceholderBase string
}

// AssetWatcher tracks image URLs across several endpoints.
type AssetWatcher struct {
	opts   AssetOptions
	fetch  Fetcher
	notify Deliverer
	snap   *Snapshot[diff.AssetSnapshot]
}

func NewAssetWatcher(opts AssetOptions, f Fetcher, d Deliverer, snap *Snapshot[diff.AssetSnapshot]) *AssetWatcher {
	return &AssetWatcher{opts: opts, fetch: f, notify: d, snap: snap}
}

func (w *AssetWatcher) Name() string { return "assets" }

// Run merges every successfully fetched endpoint into the snapshot, notifies
// the changed URLs grouped by billboard codename and saves the snapshot when
// at least one endpoint answered.
func (w *AssetWatcher) Run(ctx context.Context, log logx.Logger) (Result, error) {
	res := Result{Endpoints: len(w.opts.Endpoints)}

	snap := w.snap.Load(ctx)
	if snap == nil {
		snap = diff.AssetSnapshot{}
	}
	payloads := w.fetch.FetchAll(ctx, w.opts.Endpoints)
	res.Fetched = len(payloads)
	if res.Fetched == 0 {
		log.Debug("no asset data this cycle")
		return res, nil
	}

	seen := map[string]bool{}
	var changed []string
	for _, ep := range w.opts.Endpoints {
		payload, ok := payloads[ep]
		if !ok {
			continue
		}
		set, st := extract.Assets(payload, w.opts.MaxDepth)
		if st.Skipped > 0 {
			log.Warn("payload deeper than the walk bound", logx.Endpoint(ep), logx.Int("skipped", st.Skipped))
		}
		d := diff.Endpoint(snap, ep, set)
		log.Debug("asset diff", logx.Endpoint(ep), logx.Int("assets", len(set)), logx.Int("changed", len(d)))
		// The same URL may be served by several endpoints; notify it once.
		for _, u := range d {
			if !seen[u] {
				seen[u] = true
				changed = append(changed, u)
			}
		}
		diff.MergeAssets(snap, ep, set)
	}
	res.Changed = len(changed)

	if len(changed) > 0 {
		items := billboard.Plan(changed, w.opts.PlaceholderBase)
		ns := make([]kit.Notification, 0, len(items))
		for _, it := range items {
			ns = append(ns, itemNotification(it))
		}
		res.Delivery = w.notify.Deliver(ctx, ns)
	}

	if err := w.snap.Save(ctx, snap); err != nil {
		return res, err
	}
	res.Saved = true
	return res, nil
}
