package store

import "strings"

// titleMaxRunes caps derived conversation titles at a sidebar-friendly
// length.
const titleMaxRunes = 40

// TitleFromMessage derives a conversation title from the first user
// message. Long text is truncated on a rune boundary with an ellipsis;
// blank input falls back to DefaultTitle.
func TitleFromMessage(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return DefaultTitle
	}

	runes := []rune(text)
	if len(runes) <= titleMaxRunes {
		return text
	}
	return strings.TrimRight(string(runes[:titleMaxRunes]), " ") + "…"
}
