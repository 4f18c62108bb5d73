// Package extract turns fetched JSON payloads into flat sets of trackable
// records. Every function here is pure.
package extract

import "strings"

// Section is one tracked shop section. JSON keys match the state files
// written by earlier deployments so existing snapshots keep loading.
type Section struct {
	DisplayName   string `json:"displayName"`
	SectionID     string `json:"sectionID"`
	Category      string `json:"category,omitempty"`
	BackgroundURL string `json:"background_url,omitempty"`
}

// ShopSections descends shopData.sections. Sections without a display name
// or id are dropped.
func ShopSections(payload any) []Section {
	root, _ := payload.(map[string]any)
	shop, _ := root["shopData"].(map[string]any)
	raw, _ := shop["sections"].([]any)

	out := make([]Section, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		s := Section{
			DisplayName: str(m["displayName"]),
			SectionID:   str(m["sectionID"]),
			Category:    str(m["category"]),
		}
		if s.DisplayName == "" || s.SectionID == "" {
			continue
		}
		if meta, ok := m["metadata"].(map[string]any); ok {
			if bg, ok := meta["background"].(map[string]any); ok {
				s.BackgroundURL = strings.TrimSpace(str(bg["customTexture"]))
			}
		}
		out = append(out, s)
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
