package billboard

import (
	"testing"
)

const base = "https://cdn.example/assets/"

func TestParse(t *testing.T) {
	tests := []struct {
		url, code, rest string
		ok              bool
	}{
		{base + "billboard-abc-bg.png", "abc", "-bg.png", true},
		{base + "billboard-abc_logo.png", "abc", "_logo.png", true},
		{base + "billboard-xyz.png", "xyz", ".png", true},
		{base + "billboard-xyz", "xyz", "", true},
		{base + "billboard-.png", "", "", false},
		{base + "banner-abc-bg.png", "", "", false},
	}
	for _, tt := range tests {
		code, rest, ok := Parse(tt.url)
		if code != tt.code || rest != tt.rest || ok != tt.ok {
			t.Errorf("Parse(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.url, code, rest, ok, tt.code, tt.rest, tt.ok)
		}
	}
}

func TestClassifyRuleOrder(t *testing.T) {
	tests := []struct {
		url  string
		want Slot
	}{
		{base + "billboard-abc-bg.png", SlotBackground},
		{base + "billboard-abc-character.png", SlotCharacter},
		{base + "billboard-abc-jncharacter-figure.png", SlotFigure},
		{base + "billboard-abc-itemstack.png", SlotItemstack},
		{base + "billboard-abc-logo.png", SlotLogo},
		{base + "billboard-abc-figure.png", SlotFigure},
		{base + "billboard-abc-LOGO.PNG", SlotLogo},
		// bg wins over character when both appear.
		{base + "billboard-abc-character-bg.png", SlotBackground},
		// character wins over figure.
		{base + "billboard-abc-figure-character.png", SlotCharacter},
		// markers inside the codename do not count.
		{base + "billboard-bgcharacter-itemstack.png", SlotItemstack},
		{base + "billboard-abc-preview.png", SlotNone},
		{base + "plain-bg.png", SlotNone},
	}
	for _, tt := range tests {
		if got := Classify(tt.url); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestSplit(t *testing.T) {
	urls := []string{
		base + "zeta.png",
		base + "billboard-b-bg.png",
		base + "billboard-a-character.png",
		base + "billboard-a-character-alt.png",
		base + "billboard-a-preview.png",
		base + "alpha.png",
	}
	groups, plain := Split(urls)

	if len(plain) != 2 || plain[0] != base+"zeta.png" || plain[1] != base+"alpha.png" {
		t.Fatalf("plain = %v", plain)
	}
	if len(groups) != 2 || groups[0].Codename != "a" || groups[1].Codename != "b" {
		t.Fatalf("groups = %+v", groups)
	}
	a := groups[0]
	if a.Slots[SlotCharacter] != base+"billboard-a-character-alt.png" {
		t.Fatalf("character slot = %q, want first in sorted order", a.Slots[SlotCharacter])
	}
	if len(a.Extra) != 2 {
		t.Fatalf("extra = %v, want duplicate slot and unclassified", a.Extra)
	}
	if a.Complete() || groups[1].Complete() {
		t.Fatal("no group should be complete")
	}
}

func countKinds(items []Item) (assets, merged int) {
	for _, it := range items {
		if it.Kind == KindMerged {
			merged++
		} else {
			assets++
		}
	}
	return
}

func TestPlanCompleteGroupWithPlaceholder(t *testing.T) {
	changed := []string{
		base + "billboard-abc-bg.png",
		base + "billboard-abc-character.png",
		base + "billboard-abc-itemstack.png",
	}
	items := Plan(changed, "https://merged-assets/")

	assets, merged := countKinds(items)
	if assets != 3 || merged != 1 {
		t.Fatalf("assets=%d merged=%d, want 3 and 1", assets, merged)
	}
	last := items[len(items)-1]
	if !last.Placeholder || last.URL != "https://merged-assets/abc" || last.Codename != "abc" {
		t.Fatalf("merged item = %+v", last)
	}
	wantOrder := []Slot{SlotBackground, SlotCharacter, SlotItemstack}
	for i, s := range wantOrder {
		if items[i].Slot != s {
			t.Fatalf("item %d slot = %v, want %v", i, items[i].Slot, s)
		}
	}
}

func TestPlanCompleteGroupWithFigure(t *testing.T) {
	changed := []string{
		base + "billboard-abc-bg.png",
		base + "billboard-abc-character.png",
		base + "billboard-abc-itemstack.png",
		base + "billboard-abc-jncharacter-figure.png",
	}
	items := Plan(changed, "https://merged-assets/")

	assets, merged := countKinds(items)
	if assets != 4 || merged != 2 {
		t.Fatalf("assets=%d merged=%d, want 4 and 2", assets, merged)
	}
	m1, m2 := items[4], items[5]
	if m1.Variant != "Character" || m1.URL != base+"billboard-abc-character.png" {
		t.Fatalf("first merged = %+v", m1)
	}
	if m2.Variant != "Figure" || m2.URL != base+"billboard-abc-jncharacter-figure.png" {
		t.Fatalf("second merged = %+v", m2)
	}
	for _, it := range items {
		if it.Placeholder {
			t.Fatalf("unexpected placeholder %+v", it)
		}
	}
}

func TestPlanIncompleteAndPlain(t *testing.T) {
	changed := []string{
		base + "billboard-abc-bg.png",
		base + "billboard-abc-logo.png",
		base + "billboard-abc-figure.png",
		base + "icon.png",
	}
	items := Plan(changed, "x/")
	assets, merged := countKinds(items)
	if assets != 4 || merged != 0 {
		t.Fatalf("assets=%d merged=%d, want 4 and 0", assets, merged)
	}
	if items[0].URL != base+"icon.png" || items[0].Codename != "" {
		t.Fatalf("plain assets should come first: %+v", items[0])
	}
}

func TestPlanEmpty(t *testing.T) {
	if items := Plan(nil, "x/"); len(items) != 0 {
		t.Fatalf("Plan(nil) = %v", items)
	}
}
