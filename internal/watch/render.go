package watch

import (
	"fmt"
	"strings"

	"contentwatch/internal/billboard"
	"contentwatch/internal/extract"
	kit "contentwatch/internal/transport"
)

const (
	KindSection   = "shop.section"
	KindAsset     = "asset"
	KindBillboard = "asset.billboard"
	KindMerged    = "asset.merged"
)

func sectionNotification(s extract.Section) kit.Notification {
	n := kit.Notification{
		Title: "Shop Section Update",
		Kind:  KindSection,
		Fields: []kit.Field{
			{Name: "Display Name", Value: s.DisplayName, Inline: true},
			{Name: "Section ID", Value: s.SectionID, Inline: true},
		},
	}
	if s.Category != "" {
		n.Fields = append(n.Fields, kit.Field{Name: "Category", Value: s.Category})
	}
	if s.BackgroundURL != "" {
		n.Fields = append(n.Fields, kit.Field{Name: "Background", Value: "Background", URL: s.BackgroundURL})
	}
	return n
}

func itemNotification(it billboard.Item) kit.Notification {
	switch it.Kind {
	case billboard.KindMerged:
		title := "Merged Asset for " + it.Codename
		if it.Variant != "" {
			title += " (" + it.Variant + ")"
		}
		n := kit.Notification{Title: title, Description: it.URL, Kind: KindMerged}
		// A placeholder names a composite that does not exist; there is
		// nothing to attach.
		if !it.Placeholder {
			n.ImageURL = it.URL
		}
		return n
	default:
		kind := KindAsset
		title := "New Asset Detected"
		if it.Codename != "" {
			kind = KindBillboard
		}
		if name := it.Slot.String(); name != "" {
			title = fmt.Sprintf("New %s Asset Detected", strings.ToUpper(name[:1])+name[1:])
		}
		return kit.Notification{Title: title, Description: it.URL, ImageURL: it.URL, Kind: kind}
	}
}
