// Package diff compares freshly extracted records with the last snapshot.
//
// Diffs are one-directional: additions and modifications are reported,
// removals never are.
package diff

import (
	"sort"

	"contentwatch/internal/extract"
)

// AssetSnapshot is the persisted asset state: endpoint -> url -> marker.
type AssetSnapshot map[string]extract.AssetSet

// Sections returns the sections of next that are absent from prev by id or
// differ from the stored record in any field. Order follows next.
func Sections(next, prev []extract.Section) []extract.Section {
	byID := make(map[string]extract.Section, len(prev))
	for _, s := range prev {
		byID[s.SectionID] = s
	}
	var changed []extract.Section
	for _, s := range next {
		old, ok := byID[s.SectionID]
		if !ok || old != s {
			changed = append(changed, s)
		}
	}
	return changed
}

// Assets returns the URLs of next that are new or carry a different marker.
// When the endpoint was never seen every URL is reported. Output is sorted.
func Assets(next, prev extract.AssetSet, seen bool) []string {
	var changed []string
	for url, marker := range next {
		if !seen {
			changed = append(changed, url)
			continue
		}
		old, ok := prev[url]
		if !ok || old != marker {
			changed = append(changed, url)
		}
	}
	sort.Strings(changed)
	return changed
}

// Endpoint diffs one endpoint against snap.
func Endpoint(snap AssetSnapshot, endpoint string, next extract.AssetSet) []string {
	prev, seen := snap[endpoint]
	return Assets(next, prev, seen)
}

// MergeAssets replaces the endpoint's mapping in snap with next, whether or
// not anything changed, so unchanging "unknown" markers are recorded too.
func MergeAssets(snap AssetSnapshot, endpoint string, next extract.AssetSet) {
	cp := make(extract.AssetSet, len(next))
	for k, v := range next {
		cp[k] = v
	}
	snap[endpoint] = cp
}
