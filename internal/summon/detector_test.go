package summon

import (
	"testing"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

func msg(content string) chat.ChatMessage {
	return chat.ChatMessage{ID: "m1", SessionID: "s1", UserID: "alice", Content: content}
}

func TestDetect_NoSummon(t *testing.T) {
	d := NewDetector(DetectorConfig{})

	res := d.Detect(msg("the TAM for this market is huge"))
	if res.Summoned {
		t.Errorf("expected no summon, got %+v", res)
	}
	if res.Kind != chat.SummonNone {
		t.Errorf("expected kind none, got %s", res.Kind)
	}
}

func TestDetect_BotMention(t *testing.T) {
	d := NewDetector(DetectorConfig{})

	res := d.Detect(msg("Buddy, what's the typical seed valuation?"))
	if !res.Summoned {
		t.Fatal("expected summon")
	}
	if res.Kind != chat.SummonBotMention {
		t.Errorf("expected bot mention, got %s", res.Kind)
	}
	// The mention and surrounding punctuation are stripped from the request.
	if res.ExtractedRequest != "what's the typical seed valuation" {
		t.Errorf("unexpected extracted request: %q", res.ExtractedRequest)
	}
}

func TestDetect_NameMustBeWholeWord(t *testing.T) {
	d := NewDetector(DetectorConfig{})

	// "robot" contains "bot" but must not trigger a mention.
	if res := d.Detect(msg("their robot arm demo was impressive")); res.Summoned {
		t.Errorf("expected no summon for embedded name, got %+v", res)
	}
}

func TestDetect_TriggerPhrase(t *testing.T) {
	d := NewDetector(DetectorConfig{})

	res := d.Detect(msg("What do you think about their burn rate?"))
	if !res.Summoned {
		t.Fatal("expected summon")
	}
	if res.Kind != chat.SummonTriggerPhrase {
		t.Errorf("expected trigger phrase, got %s", res.Kind)
	}
}

func TestDetect_ActivityControl(t *testing.T) {
	d := NewDetector(DetectorConfig{})

	cases := []struct {
		content string
		level   chat.ActivityLevel
	}{
		{"buddy, be silent for a while", chat.ActivitySilent},
		{"please be quiet during the pitch", chat.ActivityQuiet},
		{"tone it down a bit", chat.ActivityQuiet},
		{"feel free to speak up more", chat.ActivityActive},
		{"ok, back to normal", chat.ActivityNormal},
	}
	for _, tc := range cases {
		res := d.Detect(msg(tc.content))
		if !res.Summoned || res.Kind != chat.SummonActivityControl {
			t.Errorf("%q: expected activity control, got %+v", tc.content, res)
			continue
		}
		if res.Activity != tc.level {
			t.Errorf("%q: expected level %s, got %s", tc.content, tc.level, res.Activity)
		}
	}
}

func TestDetect_ActivityControlBeatsMentionAndTrigger(t *testing.T) {
	d := NewDetector(DetectorConfig{})

	// Mentions the bot by name AND contains an activity command; the command
	// wins.
	res := d.Detect(msg("Bot, be quiet and help me later"))
	if res.Kind != chat.SummonActivityControl {
		t.Errorf("expected activity control to win, got %s", res.Kind)
	}
	if res.Activity != chat.ActivityQuiet {
		t.Errorf("expected quiet, got %s", res.Activity)
	}
}

func TestDetect_MentionBeatsTrigger(t *testing.T) {
	d := NewDetector(DetectorConfig{})

	res := d.Detect(msg("buddy, what do you think?"))
	if res.Kind != chat.SummonBotMention {
		t.Errorf("expected mention to outrank trigger phrase, got %s", res.Kind)
	}
}

func TestDetect_CaseInsensitiveByDefault(t *testing.T) {
	d := NewDetector(DetectorConfig{})

	if res := d.Detect(msg("BUDDY can you help")); !res.Summoned {
		t.Error("expected case-insensitive match")
	}
}

func TestDetect_CaseSensitiveMode(t *testing.T) {
	d := NewDetector(DetectorConfig{
		BotNames:      []string{"Jarvis"},
		CaseSensitive: true,
	})

	if res := d.Detect(msg("jarvis, thoughts?")); res.Summoned {
		t.Errorf("expected no match for wrong case, got %+v", res)
	}
	if res := d.Detect(msg("Jarvis, thoughts?")); !res.Summoned || res.Kind != chat.SummonBotMention {
		t.Errorf("expected exact-case match, got %+v", res)
	}
}

func TestDetect_CustomTriggerPhrases(t *testing.T) {
	d := NewDetector(DetectorConfig{TriggerPhrases: []string{"check the numbers"}})

	if res := d.Detect(msg("could someone check the numbers on this?")); !res.Summoned {
		t.Error("expected custom trigger to match")
	}
	// Supplying triggers replaces the defaults; also confirm custom bot names
	// were not supplied so defaults still apply.
	if res := d.Detect(msg("buddy are you there")); !res.Summoned {
		t.Error("expected default bot names to survive custom triggers")
	}
}

func TestStripMatch_RemovesMatchAndOuterPunctuation(t *testing.T) {
	if got := stripMatch("Buddy: summarize the last hour!", "buddy", false); got != "summarize the last hour" {
		t.Errorf("unexpected strip result: %q", got)
	}
	if got := stripMatch("no match here", "buddy", false); got != "no match here" {
		t.Errorf("expected input returned unchanged, got %q", got)
	}
}
