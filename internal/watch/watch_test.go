package watch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"contentwatch/internal/diff"
	"contentwatch/internal/extract"
	"contentwatch/internal/fetch"
	"contentwatch/internal/notifier"
	"contentwatch/internal/storage"
	kit "contentwatch/internal/transport"
	logx "contentwatch/pkg/logx"
)

type recorder struct {
	mu   sync.Mutex
	sent []kit.Notification
}

func (r *recorder) Deliver(_ context.Context, ns []kit.Notification) notifier.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, ns...)
	return notifier.Report{Sent: len(ns)}
}

func (r *recorder) take() []kit.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sent
	r.sent = nil
	return out
}

// payloadServer serves whatever body is currently stored for a path.
type payloadServer struct {
	mu     sync.Mutex
	bodies map[string]string
	srv    *httptest.Server
}

func newPayloadServer(t *testing.T) *payloadServer {
	t.Helper()
	ps := &payloadServer{bodies: map[string]string{}}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		body, ok := ps.bodies[r.URL.Path]
		ps.mu.Unlock()
		if !ok {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *payloadServer) set(path, body string) {
	ps.mu.Lock()
	ps.bodies[path] = body
	ps.mu.Unlock()
}

func (ps *payloadServer) drop(path string) {
	ps.mu.Lock()
	delete(ps.bodies, path)
	ps.mu.Unlock()
}

func (ps *payloadServer) url(path string) string { return ps.srv.URL + path }

func openFileStore(t *testing.T, dir string) storage.Store {
	t.Helper()
	st, err := storage.Open(storage.Config{Driver: "file", Path: dir}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newShop(t *testing.T, ps *payloadServer, st storage.Store, rec *recorder) *ShopWatcher {
	t.Helper()
	client := fetch.New(fetch.Config{Timeout: 2 * time.Second}, ps.srv.Client(), logx.Nop())
	snap := NewSnapshot(st, "shop_sections", func() []extract.Section { return []extract.Section{} }, logx.Nop())
	return NewShopWatcher(ps.url("/shop"), client, rec, snap)
}

func newAssets(t *testing.T, ps *payloadServer, st storage.Store, rec *recorder, paths ...string) *AssetWatcher {
	t.Helper()
	client := fetch.New(fetch.Config{Timeout: 2 * time.Second}, ps.srv.Client(), logx.Nop())
	snap := NewSnapshot(st, "previous_assets", func() diff.AssetSnapshot { return diff.AssetSnapshot{} }, logx.Nop())
	var eps []string
	for _, p := range paths {
		eps = append(eps, ps.url(p))
	}
	return NewAssetWatcher(AssetOptions{Endpoints: eps, PlaceholderBase: "https://merged-assets/"}, client, rec, snap)
}

const shopBody = `{"shopData": {"sections": [
	{"displayName": "Featured", "sectionID": "featured", "category": "Main",
	 "metadata": {"background": {"customTexture": "https://cdn/bg.png"}}},
	{"displayName": "Daily", "sectionID": "daily"}
]}}`

func TestShopCycleIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ps := newPayloadServer(t)
	ps.set("/shop", shopBody)
	rec := &recorder{}
	w := newShop(t, ps, openFileStore(t, dir), rec)

	res, err := w.Run(ctx, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	first := rec.take()
	if res.Changed != 2 || len(first) != 2 || !res.Saved {
		t.Fatalf("first run: res=%+v notifications=%d", res, len(first))
	}
	if first[0].Fields[0].Value != "Featured" || len(first[0].Fields) != 4 {
		t.Fatalf("first notification = %+v", first[0])
	}
	before, err := os.ReadFile(filepath.Join(dir, "shop_sections.json"))
	if err != nil {
		t.Fatal(err)
	}

	res, err = w.Run(ctx, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed != 0 || len(rec.take()) != 0 || res.Saved {
		t.Fatalf("second run should be quiet: %+v", res)
	}
	after, _ := os.ReadFile(filepath.Join(dir, "shop_sections.json"))
	if string(before) != string(after) {
		t.Fatal("snapshot changed on an identical refetch")
	}
}

func TestShopCategoryChangeAndFetchFailure(t *testing.T) {
	ctx := context.Background()
	ps := newPayloadServer(t)
	ps.set("/shop", shopBody)
	rec := &recorder{}
	w := newShop(t, ps, openFileStore(t, t.TempDir()), rec)

	if _, err := w.Run(ctx, logx.Nop()); err != nil {
		t.Fatal(err)
	}
	rec.take()

	ps.set("/shop", strings.Replace(shopBody, `"Main"`, `"Limited"`, 1))
	res, err := w.Run(ctx, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	got := rec.take()
	if res.Changed != 1 || len(got) != 1 || got[0].Fields[1].Value != "featured" {
		t.Fatalf("category change: res=%+v got=%+v", res, got)
	}

	ps.drop("/shop")
	res, err = w.Run(ctx, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if res.Fetched != 0 || res.Saved || len(rec.take()) != 0 {
		t.Fatalf("failed fetch should do nothing: %+v", res)
	}
}

func TestMalformedSnapshotStartsEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "shop_sections.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	ps := newPayloadServer(t)
	ps.set("/shop", shopBody)
	rec := &recorder{}
	w := newShop(t, ps, openFileStore(t, dir), rec)

	res, err := w.Run(ctx, logx.Nop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Changed != 2 || !res.Saved {
		t.Fatalf("res = %+v, want first-run burst and a save", res)
	}
	b, _ := os.ReadFile(filepath.Join(dir, "shop_sections.json"))
	if !strings.Contains(string(b), `"sectionID": "featured"`) {
		t.Fatalf("snapshot not rewritten: %s", b)
	}
}

func TestSnapshotLoadsLegacyNulls(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	legacy := `[{"displayName": "Daily", "sectionID": "daily", "category": null, "background_url": null}]`
	if err := os.WriteFile(filepath.Join(dir, "shop_sections.json"), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	snap := NewSnapshot(openFileStore(t, dir), "shop_sections", func() []extract.Section { return nil }, logx.Nop())
	got := snap.Load(ctx)
	if len(got) != 1 || got[0] != (extract.Section{DisplayName: "Daily", SectionID: "daily"}) {
		t.Fatalf("Load = %+v", got)
	}
}

func TestAssetCycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ps := newPayloadServer(t)
	ps.set("/a", `{"items": [
		{"image": "https://cdn/x/billboard-abc-bg.png", "lastModified": "1"},
		{"image": "https://cdn/x/billboard-abc-character.png", "lastModified": "1"},
		{"image": "https://cdn/x/billboard-abc-itemstack.png", "lastModified": "1"},
		{"image": "https://cdn/x/icon.webp"}
	]}`)
	ps.set("/b", `{"hero": "https://cdn/y/hero.JPG"}`)
	rec := &recorder{}
	w := newAssets(t, ps, openFileStore(t, dir), rec, "/a", "/b", "/down")

	res, err := w.Run(ctx, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if res.Endpoints != 3 || res.Fetched != 2 || res.Changed != 5 || !res.Saved {
		t.Fatalf("first run res = %+v", res)
	}
	got := rec.take()
	if len(got) != 6 {
		t.Fatalf("notifications = %d, want 5 assets + 1 merged", len(got))
	}
	last := got[len(got)-1]
	if last.Title != "Merged Asset for abc" || last.Description != "https://merged-assets/abc" || last.ImageURL != "" {
		t.Fatalf("merged notification = %+v", last)
	}

	// Unchanged data: nothing to report, snapshot rewritten with the same content.
	before, _ := os.ReadFile(filepath.Join(dir, "previous_assets.json"))
	res, err = w.Run(ctx, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed != 0 || len(rec.take()) != 0 {
		t.Fatalf("second run = %+v", res)
	}
	after, _ := os.ReadFile(filepath.Join(dir, "previous_assets.json"))
	if string(before) != string(after) {
		t.Fatalf("snapshot drifted:\n%s\n%s", before, after)
	}

	// A failed endpoint keeps its previous mapping.
	ps.drop("/b")
	ps.set("/a", `{"items": [{"image": "https://cdn/x/billboard-abc-bg.png", "lastModified": "2"}]}`)
	res, err = w.Run(ctx, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	got = rec.take()
	if res.Changed != 1 || len(got) != 1 || got[0].Title != "New Background Asset Detected" {
		t.Fatalf("third run res=%+v got=%+v", res, got)
	}
	snap := w.snap.Load(ctx)
	if snap[ps.url("/b")]["https://cdn/y/hero.JPG"] != extract.UnknownMarker {
		t.Fatalf("failed endpoint lost its state: %v", snap)
	}
	if len(snap[ps.url("/a")]) != 1 {
		t.Fatalf("endpoint mapping not replaced: %v", snap[ps.url("/a")])
	}
}

func TestAssetCycleAllEndpointsDown(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	ps := newPayloadServer(t)
	rec := &recorder{}
	w := newAssets(t, ps, openFileStore(t, dir), rec, "/a")

	res, err := w.Run(ctx, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if res.Saved {
		t.Fatal("nothing fetched, nothing should be saved")
	}
	if _, err := os.Stat(filepath.Join(dir, "previous_assets.json")); !os.IsNotExist(err) {
		t.Fatalf("snapshot file created: %v", err)
	}
}

type stepJob struct {
	name  string
	runs  atomic.Int32
	panic bool
	err   error
}

func (j *stepJob) Name() string { return j.name }
func (j *stepJob) Run(context.Context, logx.Logger) (Result, error) {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
	return Result{Endpoints: 1, Fetched: 1, Changed: 1, Delivery: notifier.Report{Sent: 1}}, j.err
}

type everySchedule time.Duration

func (e everySchedule) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

func TestLoopContainsFailures(t *testing.T) {
	bad := &stepJob{name: "bad", panic: true}
	failing := &stepJob{name: "failing", err: errors.New("disk full")}
	good := &stepJob{name: "good"}
	l := NewLoop(everySchedule(time.Hour), logx.Nop(), bad, failing, good)

	l.RunOnce(context.Background())
	l.RunOnce(context.Background())

	jobs, cycles, _ := l.Stats()
	if cycles != 2 || len(jobs) != 3 {
		t.Fatalf("cycles=%d jobs=%d", cycles, len(jobs))
	}
	if jobs[0].LastErr == "" || jobs[1].LastErr != "disk full" || jobs[2].LastErr != "" {
		t.Fatalf("errors = %q %q %q", jobs[0].LastErr, jobs[1].LastErr, jobs[2].LastErr)
	}
	if good.runs.Load() != 2 || jobs[2].TotalSent != 2 {
		t.Fatalf("good job runs=%d stats=%+v", good.runs.Load(), jobs[2])
	}
}

func TestLoopRunsUntilCanceled(t *testing.T) {
	j := &stepJob{name: "j"}
	l := NewLoop(everySchedule(10*time.Millisecond), logx.Nop(), j)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for j.runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d runs", j.runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v", err)
	}
}

func TestLoopReschedule(t *testing.T) {
	j := &stepJob{name: "j"}
	l := NewLoop(everySchedule(time.Hour), logx.Nop(), j)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	for j.runs.Load() < 1 {
		time.Sleep(5 * time.Millisecond)
	}
	l.SetSchedule(everySchedule(10 * time.Millisecond))

	deadline := time.After(2 * time.Second)
	for j.runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("new schedule not picked up")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStatusHTML(t *testing.T) {
	l := NewLoop(everySchedule(time.Minute), logx.Nop(), &stepJob{name: "shop"}, &stepJob{name: "assets", err: errors.New("<bad>")})
	l.RunOnce(context.Background())

	out := StatusHTML(l, nil, 5, time.Now())
	for _, want := range []string{"<b>shop</b>", "<b>assets</b>", "cycles: 1", "&lt;bad&gt;"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}
}
