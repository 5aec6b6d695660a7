package response

import (
	"strings"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

var contractions = map[string]string{
	"don't":   "do not",
	"can't":   "cannot",
	"won't":   "will not",
	"it's":    "it is",
	"we're":   "we are",
	"I'm":     "I am",
	"that's":  "that is",
	"there's": "there is",
	"let's":   "let us",
}

var fillerPhrases = []string{
	"I just wanted to say that ",
	"It's worth noting that ",
	"As I mentioned, ",
	"To be honest, ",
	"Basically, ",
}

const briefMaxLen = 200

// Personalize is a pure text transform that adapts a drafted response to a
// participant's preferences and the room's tone.
func Personalize(text string, prefs chat.UserPreferences, tone chat.ConversationTone) string {
	out := text

	switch prefs.Style {
	case chat.StyleFormal:
		out = strings.ReplaceAll(out, "I think", "I believe")
		out = expandContractions(out)
	case chat.StyleBrief:
		for _, f := range fillerPhrases {
			out = strings.ReplaceAll(out, f, "")
		}
		out = truncateAtSentence(out, briefMaxLen)
	}

	if prefs.ExpandContraction && prefs.Style != chat.StyleFormal {
		out = expandContractions(out)
	}

	if tone.Urgency > 0.7 {
		out = "Time-sensitive: " + out
	}
	if tone.Enthusiasm > 0.7 && !strings.HasSuffix(out, "!") {
		out = strings.TrimSuffix(out, ".") + "!"
	}

	return out
}

func expandContractions(s string) string {
	for short, long := range contractions {
		s = strings.ReplaceAll(s, short, long)
		s = strings.ReplaceAll(s, capitalize(short), capitalize(long))
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// truncateAtSentence cuts at the last sentence boundary under max, falling
// back to a hard cut when the text has none.
func truncateAtSentence(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndexAny(cut, ".!?"); idx > 0 {
		return cut[:idx+1]
	}
	return strings.TrimSpace(cut) + "…"
}
