package tgui

import tele "gopkg.in/telebot.v4"

// LinkKeyboard is an inline keyboard with one URL button.
func LinkKeyboard(text, url string) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	rm.Inline(rm.Row(tele.Btn{Text: text, URL: url}))
	return rm
}
