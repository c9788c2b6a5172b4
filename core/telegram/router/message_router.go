package router

import (
	"strings"

	tg "github.com/m3rciful/relaybot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls fallback behaviour for text and document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
	// AdminID and OnAdminReject gate admin commands reached by alias.
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// TextRoutes handles free text and documents. Slash text Telebot did not
// match itself (aliases, odd casing) is resolved through the registry; other
// text goes to the registry text fallback.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		if h, name, ok := lookupSlash(reg, c.Text(), opts); ok {
			return begin(name).run(c, h)
		}
		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return begin("fallback").run(c, fb)
			}
		}
		if opts.UnknownText != nil {
			return begin("unknown_text").run(c, opts.UnknownText)
		}
		return begin("unknown_text").skip(c)
	}

	document := func(c tele.Context) error {
		s := begin("unexpected_document")
		if opts.UnknownDocument == nil {
			return s.skip(c)
		}
		return s.run(c, opts.UnknownDocument)
	}

	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnDocument, Handler: wrap(document)},
	}
}

func lookupSlash(reg *tg.Registry, text string, opts TextOptions) (tele.HandlerFunc, string, bool) {
	if reg == nil || !strings.HasPrefix(text, "/") {
		return nil, "", false
	}
	key, cmd, ok := reg.LookupCommand(strings.Fields(text)[0])
	if !ok || cmd.Handler == nil {
		return nil, "", false
	}
	h := cmd.Handler
	if cmd.AdminOnly {
		h = gateAdmin(opts.AdminID, opts.OnAdminReject)(h)
	}
	return h, key, true
}
