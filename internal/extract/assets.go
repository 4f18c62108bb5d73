package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownMarker is recorded for assets without a sibling lastModified field.
const UnknownMarker = "unknown"

// DefaultMaxDepth bounds the payload walk. Realistic payloads nest a few
// dozen levels at most.
const DefaultMaxDepth = 128

var imageExts = []string{".png", ".jpg", ".jpeg", ".webp", ".gif", ".tga", ".bmp"}

// AssetSet maps asset URL to its last-modified marker.
type AssetSet map[string]string

type Stats struct {
	Nodes   int
	Skipped int // containers below the depth bound
}

// IsImageURL reports whether s ends in a known image extension, ignoring case.
func IsImageURL(s string) bool {
	l := strings.ToLower(s)
	for _, ext := range imageExts {
		if strings.HasSuffix(l, ext) {
			return true
		}
	}
	return false
}

type frame struct {
	node  any
	depth int
}

// Assets walks payload with an explicit stack and records every image URL
// string. Containers nested deeper than maxDepth are not entered.
func Assets(payload any, maxDepth int) (AssetSet, Stats) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	out := AssetSet{}
	var st Stats

	stack := []frame{{node: payload, depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		st.Nodes++

		switch n := f.node.(type) {
		case map[string]any:
			marker := UnknownMarker
			if lm, ok := n["lastModified"]; ok && lm != nil {
				marker = markerString(lm)
			}
			for _, v := range n {
				switch c := v.(type) {
				case string:
					if IsImageURL(c) {
						out.record(c, marker)
					}
				case map[string]any, []any:
					if f.depth+1 > maxDepth {
						st.Skipped++
						continue
					}
					stack = append(stack, frame{node: c, depth: f.depth + 1})
				}
			}
		case []any:
			for _, v := range n {
				switch c := v.(type) {
				case string:
					// Array elements have no sibling marker.
					if IsImageURL(c) {
						out.record(c, UnknownMarker)
					}
				case map[string]any, []any:
					if f.depth+1 > maxDepth {
						st.Skipped++
						continue
					}
					stack = append(stack, frame{node: c, depth: f.depth + 1})
				}
			}
		}
	}
	return out, st
}

// record keeps one marker per URL when it appears several times. A real
// marker beats "unknown"; between real markers the greater one wins so the
// result does not depend on map iteration order.
func (s AssetSet) record(url, marker string) {
	old, ok := s[url]
	switch {
	case !ok, old == UnknownMarker:
		s[url] = marker
	case marker != UnknownMarker && marker > old:
		s[url] = marker
	}
}

func markerString(v any) string {
	switch m := v.(type) {
	case string:
		return m
	case json.Number:
		return m.String()
	case float64:
		return fmt.Sprintf("%v", m)
	case bool:
		if m {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return UnknownMarker
		}
		return string(b)
	}
}
