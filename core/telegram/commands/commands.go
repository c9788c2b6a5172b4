package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	// Aliases are extra names reachable through the text router only; they
	// are not advertised in the Telegram command menu.
	Aliases []string
}

// Normalize lowercases name, drops a "@botname" suffix and ensures the
// leading slash.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name, _, _ = strings.Cut(name, "@")
	if name != "" && !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}

// HasAlias reports whether name is one of the command's aliases.
func (c Command) HasAlias(name string) bool {
	name = Normalize(name)
	for _, alias := range c.Aliases {
		if Normalize(alias) == name {
			return true
		}
	}
	return false
}
