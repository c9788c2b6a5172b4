package session

import "fmt"

const (
	textMain = "👋 *Welcome!* Choose a section:"

	textSocial = "🌐 *Social networks*\nPick a network to open it:"

	textAITools = "🤖 *AI tools*\nOpen a service in the browser or talk to Gemini right here."

	textGeminiOptions = "🔮 *Gemini*\nOpen the web app or start a chat in this dialog."

	textChatActive = "💬 *Gemini chat started.*\n" +
		"Send any message and I will forward it to Gemini.\n" +
		"Use /stop or the button below to finish."

	textNotConfigured = "⚠️ Gemini is not configured on this bot yet. Please try again later."

	textChatEnded = "✅ Chat with Gemini ended."

	textInactiveHint = "ℹ️ Use /start to open the menu. To talk to Gemini choose *AI tools → Gemini → Chat*."

	textUnsupported = "This button is no longer supported. Use /start to open the menu."

	textFailure = "😔 Something went wrong. Please try again."

	textHelp = "*Commands*\n" +
		"/start – open the main menu\n" +
		"/stop – end the Gemini chat\n" +
		"/history – show your last questions\n" +
		"/help – this message"

	textHistoryEmpty = "Your history is empty."
)

func textAIFailure(diag string) string {
	return fmt.Sprintf("😔 Sorry, Gemini could not answer right now.\n(%s)", diag)
}

// historyLimit bounds the /history listing, not the stored history.
const historyLimit = 5

var socialLinks = []Button{
	{Label: "Facebook", URL: "https://www.facebook.com/"},
	{Label: "Telegram", URL: "https://t.me/"},
	{Label: "Messenger", URL: "https://www.messenger.com/"},
	{Label: "X", URL: "https://x.com/"},
	{Label: "LinkedIn", URL: "https://www.linkedin.com/"},
	{Label: "Instagram", URL: "https://www.instagram.com/"},
	{Label: "WhatsApp", URL: "https://www.whatsapp.com/"},
}

func back(to Action) []Button {
	return []Button{{Label: "⬅️ Back", Action: to}}
}

func pairs(buttons []Button) [][]Button {
	var rows [][]Button
	for i := 0; i < len(buttons); i += 2 {
		end := i + 2
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return rows
}

// layout returns the text and keyboard of a screen.
func layout(s Screen) (Render, error) {
	switch s {
	case ScreenMain:
		return Render{Text: textMain, Keyboard: [][]Button{
			{{Label: "🌐 Social networks", Action: ActionSocial}},
			{{Label: "🤖 AI tools", Action: ActionAI}},
		}}, nil
	case ScreenSocial:
		return Render{Text: textSocial, Keyboard: append(pairs(socialLinks), back(ActionMain))}, nil
	case ScreenAITools:
		return Render{Text: textAITools, Keyboard: [][]Button{
			{{Label: "💬 ChatGPT", URL: "https://chat.openai.com/"}},
			{{Label: "🧠 DeepSeek", URL: "https://chat.deepseek.com/"}},
			{{Label: "🔮 Gemini", Action: ActionGeminiOptions}},
			back(ActionMain),
		}}, nil
	case ScreenGeminiOptions:
		return Render{Text: textGeminiOptions, Keyboard: [][]Button{
			{{Label: "🌍 Open gemini.google.com", URL: "https://gemini.google.com/"}},
			{{Label: "💬 Chat here", Action: ActionGeminiChat}},
			back(ActionAI),
		}}, nil
	case ScreenGeminiChatActive:
		return Render{Text: textChatActive, Keyboard: [][]Button{
			{{Label: "⛔ End chat", Action: ActionEndChat}},
		}}, nil
	}
	return Render{}, fmt.Errorf("session: no layout for screen %q", s)
}

// navigation maps a menu action to the screen it opens.
func navigation(a Action) (Screen, bool) {
	switch a {
	case ActionMain:
		return ScreenMain, true
	case ActionSocial:
		return ScreenSocial, true
	case ActionAI:
		return ScreenAITools, true
	case ActionGeminiOptions:
		return ScreenGeminiOptions, true
	case ActionGeminiChat, ActionEndChat:
		return "", false
	}
	return "", false
}

func mainMenuButton() [][]Button {
	return [][]Button{{{Label: "🏠 Main menu", Action: ActionMain}}}
}
