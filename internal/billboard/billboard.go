// Package billboard groups billboard asset URLs by codename and decides which
// groups also get merged notifications.
//
// A billboard URL looks like .../billboard-<codename>-<part>.png. The codename
// is the token after the marker; the part after the codename decides the slot
// through an ordered list of substring rules where the first match wins.
package billboard

import (
	"sort"
	"strings"
)

const Marker = "billboard-"

type Slot int

const (
	SlotNone Slot = iota
	SlotBackground
	SlotCharacter
	SlotItemstack
	SlotLogo
	SlotFigure
)

// slotOrder is the order individual notifications are emitted in.
var slotOrder = []Slot{SlotBackground, SlotCharacter, SlotItemstack, SlotLogo, SlotFigure}

func (s Slot) String() string {
	switch s {
	case SlotBackground:
		return "background"
	case SlotCharacter:
		return "character"
	case SlotItemstack:
		return "itemstack"
	case SlotLogo:
		return "logo"
	case SlotFigure:
		return "figure"
	default:
		return ""
	}
}

type rule struct {
	marker string
	slot   func(part string) Slot
}

func fixed(s Slot) func(string) Slot { return func(string) Slot { return s } }

// Order matters: "bg" is tested before "character" and so on.
var rules = []rule{
	{marker: "bg", slot: fixed(SlotBackground)},
	{marker: "character", slot: func(part string) Slot {
		if strings.Contains(part, "jn") {
			return SlotFigure
		}
		return SlotCharacter
	}},
	{marker: "itemstack", slot: fixed(SlotItemstack)},
	{marker: "logo", slot: fixed(SlotLogo)},
	{marker: "figure", slot: fixed(SlotFigure)},
}

func isSeparator(r rune) bool {
	switch r {
	case '-', '_', '.', '/', '?':
		return true
	}
	return false
}

// Parse returns the codename of a billboard URL and the text that follows
// it. ok is false when url carries no marker or the codename is empty.
func Parse(url string) (codename, rest string, ok bool) {
	i := strings.Index(url, Marker)
	if i < 0 {
		return "", "", false
	}
	tail := url[i+len(Marker):]
	end := strings.IndexFunc(tail, isSeparator)
	if end < 0 {
		end = len(tail)
	}
	if end == 0 {
		return "", "", false
	}
	return tail[:end], tail[end:], true
}

// Classify returns the slot of a billboard URL, SlotNone when no rule
// matches or url is not a billboard asset.
func Classify(url string) Slot {
	_, rest, ok := Parse(url)
	if !ok {
		return SlotNone
	}
	part := strings.ToLower(rest)
	for _, r := range rules {
		if strings.Contains(part, r.marker) {
			return r.slot(part)
		}
	}
	return SlotNone
}

// Group holds the billboard assets of one codename seen in a single cycle.
type Group struct {
	Codename string
	Slots    map[Slot]string
	// Extra holds unclassified assets and assets whose slot was already
	// taken, sorted.
	Extra []string
}

// Complete reports whether background, character and itemstack are present.
func (g Group) Complete() bool {
	return g.Slots[SlotBackground] != "" && g.Slots[SlotCharacter] != "" && g.Slots[SlotItemstack] != ""
}

// Split separates billboard URLs into groups sorted by codename and returns
// the remaining URLs unchanged in order.
func Split(urls []string) (groups []Group, plain []string) {
	sorted := append([]string(nil), urls...)
	sort.Strings(sorted)

	byName := map[string]*Group{}
	var names []string
	for _, u := range sorted {
		code, _, ok := Parse(u)
		if !ok {
			continue
		}
		g, exists := byName[code]
		if !exists {
			g = &Group{Codename: code, Slots: map[Slot]string{}}
			byName[code] = g
			names = append(names, code)
		}
		slot := Classify(u)
		if slot != SlotNone && g.Slots[slot] == "" {
			g.Slots[slot] = u
			continue
		}
		g.Extra = append(g.Extra, u)
	}
	for _, u := range urls {
		if _, _, ok := Parse(u); !ok {
			plain = append(plain, u)
		}
	}

	sort.Strings(names)
	groups = make([]Group, 0, len(names))
	for _, n := range names {
		groups = append(groups, *byName[n])
	}
	return groups, plain
}

type Kind int

const (
	KindAsset Kind = iota
	KindMerged
)

// Item is one planned notification.
type Item struct {
	Kind     Kind
	URL      string
	Slot     Slot
	Codename string
	// Variant is "Character" or "Figure" for merged pairs, empty otherwise.
	Variant string
	// Placeholder is set when URL is a synthesized merged identifier rather
	// than a real asset.
	Placeholder bool
}

// Plan orders the notifications for one cycle's changed URLs: plain assets
// first, then each group's assets individually, then merged items for
// complete groups.
func Plan(changed []string, placeholderBase string) []Item {
	groups, plain := Split(changed)

	var items []Item
	for _, u := range plain {
		items = append(items, Item{Kind: KindAsset, URL: u})
	}
	for _, g := range groups {
		for _, s := range slotOrder {
			if u := g.Slots[s]; u != "" {
				items = append(items, Item{Kind: KindAsset, URL: u, Slot: s, Codename: g.Codename})
			}
		}
		for _, u := range g.Extra {
			items = append(items, Item{Kind: KindAsset, URL: u, Slot: Classify(u), Codename: g.Codename})
		}
	}
	for _, g := range groups {
		if !g.Complete() {
			continue
		}
		if fig := g.Slots[SlotFigure]; fig != "" {
			items = append(items,
				Item{Kind: KindMerged, URL: g.Slots[SlotCharacter], Slot: SlotCharacter, Codename: g.Codename, Variant: "Character"},
				Item{Kind: KindMerged, URL: fig, Slot: SlotFigure, Codename: g.Codename, Variant: "Figure"},
			)
			continue
		}
		items = append(items, Item{Kind: KindMerged, URL: placeholderBase + g.Codename, Codename: g.Codename, Placeholder: true})
	}
	return items
}
