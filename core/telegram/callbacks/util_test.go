package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name    string
		cb      *tele.Callback
		key     string
		payload string
	}{
		{"nil", nil, "", ""},
		{"raw", &tele.Callback{Data: "\fmenu|gemini_chat"}, "menu", "gemini_chat"},
		{"raw without payload", &tele.Callback{Data: "\fmenu"}, "menu", ""},
		{"payload with separator", &tele.Callback{Data: "\fmenu|a|b"}, "menu", "a|b"},
		{"unique set", &tele.Callback{Unique: "menu", Data: "social"}, "menu", "social"},
		{"plain data", &tele.Callback{Data: "main"}, "main", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tc.cb)
			if key != tc.key || payload != tc.payload {
				t.Fatalf("got (%q, %q), want (%q, %q)", key, payload, tc.key, tc.payload)
			}
		})
	}
}
