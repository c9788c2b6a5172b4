package commands

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"start":           "/start",
		"/Start":          "/start",
		" /stop ":         "/stop",
		"/start@RelayBot": "/start",
		"":                "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHasAlias(t *testing.T) {
	cmd := Command{Aliases: []string{"menu", "/home"}}
	for _, name := range []string{"/menu", "menu", "/HOME", "/menu@relaybot"} {
		if !cmd.HasAlias(name) {
			t.Errorf("expected alias match for %q", name)
		}
	}
	if cmd.HasAlias("/start") {
		t.Error("unexpected alias match for /start")
	}
}
