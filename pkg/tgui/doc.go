// Package tgui builds Telegram HTML messages.
//
// Values of type H are already escaped; plain strings passed to the builders
// are escaped on the way in. Visible and VisibleLen measure what Telegram
// counts against its length limits.
package tgui
