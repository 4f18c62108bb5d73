package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	logx "contentwatch/pkg/logx"
)

func openTestStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	out := map[string]Store{}
	for name, cfg := range map[string]Config{
		"file":   {Driver: "file", Path: filepath.Join(dir, "state")},
		"sqlite": {Driver: "sqlite", Path: filepath.Join(dir, "db", "state.db")},
	} {
		st, err := Open(cfg, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%s): %v", name, err)
		}
		t.Cleanup(func() { _ = st.Close() })
		out[name] = st
	}
	return out
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, st := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := st.Get(ctx, "shop_sections"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get before Put = %v, want ErrNotFound", err)
			}
			if err := st.Put(ctx, "shop_sections", []byte(`[{"sectionID":"a"}]`)); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := st.Put(ctx, "shop_sections", []byte(`[]`)); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			got, err := st.Get(ctx, "shop_sections")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != "[]" {
				t.Fatalf("Get = %q, want []", got)
			}
		})
	}
}

func TestStoreRejectsUnsafeKey(t *testing.T) {
	ctx := context.Background()
	for name, st := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
				if err := st.Put(ctx, key, []byte("{}")); err == nil {
					t.Fatalf("Put(%q) should fail", key)
				}
			}
		})
	}
}

func TestFileStoreWritesReadableFile(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: dir}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	if err := st.Put(context.Background(), "previous_assets", []byte("{}\n")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "previous_assets.json"))
	if err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}
	if string(b) != "{}\n" {
		t.Fatalf("file content = %q", b)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the snapshot file, found %d entries", len(entries))
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
