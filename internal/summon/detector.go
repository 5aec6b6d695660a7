// Package summon decides whether a message is directed at the assistant and
// classifies what the sender wants from it.
package summon

import (
	"strings"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

// activityCommand maps a control phrase to the activity level it sets.
// Checked in order; first match wins.
type activityCommand struct {
	phrase string
	level  chat.ActivityLevel
}

var defaultActivityCommands = []activityCommand{
	{"be silent", chat.ActivitySilent},
	{"go silent", chat.ActivitySilent},
	{"stop talking", chat.ActivitySilent},
	{"be quiet", chat.ActivityQuiet},
	{"tone it down", chat.ActivityQuiet},
	{"less active", chat.ActivityQuiet},
	{"be more active", chat.ActivityActive},
	{"speak up", chat.ActivityActive},
	{"more input", chat.ActivityActive},
	{"be normal", chat.ActivityNormal},
	{"normal mode", chat.ActivityNormal},
	{"back to normal", chat.ActivityNormal},
}

var defaultBotNames = []string{"buddy", "bot", "assistant"}

var defaultTriggerPhrases = []string{
	"what do you think",
	"any thoughts",
	"can you help",
	"fact check",
	"summarize this",
}

// DetectorConfig overrides the built-in pattern tables. With CaseSensitive
// set, matching is exact-case and the built-in name/trigger tables are
// disabled unless explicitly re-supplied.
type DetectorConfig struct {
	BotNames       []string
	TriggerPhrases []string
	CaseSensitive  bool
}

type Detector struct {
	names    []string
	triggers []string
	commands []activityCommand
	caseSens bool
}

func NewDetector(cfg DetectorConfig) *Detector {
	d := &Detector{
		names:    cfg.BotNames,
		triggers: cfg.TriggerPhrases,
		commands: defaultActivityCommands,
		caseSens: cfg.CaseSensitive,
	}
	if !cfg.CaseSensitive {
		if d.names == nil {
			d.names = defaultBotNames
		}
		if d.triggers == nil {
			d.triggers = defaultTriggerPhrases
		}
	}
	return d
}

// Detect is a pure function of the message content and the pattern tables.
// Priority when several pattern classes match: activity-control commands,
// then bot-name mentions, then generic trigger phrases.
func (d *Detector) Detect(msg chat.ChatMessage) chat.SummonResult {
	content := msg.Content
	haystack := content
	if !d.caseSens {
		haystack = strings.ToLower(content)
	}

	for _, cmd := range d.commands {
		phrase := cmd.phrase
		if d.caseSens {
			// Command phrases are defined lowercase; in case-sensitive mode
			// they must appear verbatim.
			if !strings.Contains(content, phrase) {
				continue
			}
		} else if !strings.Contains(haystack, phrase) {
			continue
		}
		return chat.SummonResult{
			Summoned:         true,
			Kind:             chat.SummonActivityControl,
			Activity:         cmd.level,
			ExtractedRequest: stripMatch(content, phrase, d.caseSens),
		}
	}

	for _, name := range d.names {
		needle := name
		if !d.caseSens {
			needle = strings.ToLower(name)
		}
		if containsWord(haystack, needle) {
			return chat.SummonResult{
				Summoned:         true,
				Kind:             chat.SummonBotMention,
				ExtractedRequest: stripMatch(content, name, d.caseSens),
			}
		}
	}

	for _, trigger := range d.triggers {
		needle := trigger
		if !d.caseSens {
			needle = strings.ToLower(trigger)
		}
		if strings.Contains(haystack, needle) {
			return chat.SummonResult{
				Summoned:         true,
				Kind:             chat.SummonTriggerPhrase,
				ExtractedRequest: stripMatch(content, trigger, d.caseSens),
			}
		}
	}

	return chat.SummonResult{Kind: chat.SummonNone}
}

// containsWord reports whether needle appears as a whole word.
func containsWord(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordChar(haystack[start-1])
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// stripMatch removes the first occurrence of the matched pattern from the
// message and tidies up leftover punctuation.
func stripMatch(content, pattern string, caseSens bool) string {
	idx := -1
	if caseSens {
		idx = strings.Index(content, pattern)
	} else {
		idx = strings.Index(strings.ToLower(content), strings.ToLower(pattern))
	}
	if idx < 0 {
		return strings.TrimSpace(content)
	}
	rest := content[:idx] + content[idx+len(pattern):]
	return strings.Trim(strings.TrimSpace(rest), ",.!?;: ")
}
