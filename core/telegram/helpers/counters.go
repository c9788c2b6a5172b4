package helpers

import tele "gopkg.in/telebot.v4"

const (
	keyResponses = "messages"
	keyKeyboard  = "kb"
)

// ResetCounters starts per-update response accounting.
func ResetCounters(c tele.Context) {
	c.Set(keyResponses, 0)
	c.Set(keyKeyboard, false)
}

// Counters reports how many responses the handler queued for this update and
// whether any of them carried a keyboard.
func Counters(c tele.Context) (int, bool) {
	n, _ := c.Get(keyResponses).(int)
	kb, _ := c.Get(keyKeyboard).(bool)
	return n, kb
}

// countResponse is called when a helper queues a response, so handler
// summaries see the count even though delivery is asynchronous.
func countResponse(c tele.Context, rm *tele.ReplyMarkup) {
	n, _ := c.Get(keyResponses).(int)
	c.Set(keyResponses, n+1)
	if rm != nil {
		c.Set(keyKeyboard, true)
	}
}
