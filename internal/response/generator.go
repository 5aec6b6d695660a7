// Package response drafts the assistant's outbound messages. Generate never
// fails: when the completion service is unavailable the caller still gets a
// usable, clearly lower-confidence response object.
package response

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
	"github.com/thesathwik/brainstorm-buddy/internal/llm"
)

// Completions is the slice of the completion client the generator needs.
type Completions interface {
	GenerateResponse(ctx context.Context, prompt, conversationContext string) (llm.Result, error)
}

type Generator struct {
	client Completions
}

func NewGenerator(client Completions) *Generator {
	return &Generator{client: client}
}

// promptSpec describes how to draft and recover for one intervention type.
type promptSpec struct {
	build     func(cc chat.ConversationContext, extra map[string]string) string
	fallback  string
	followUps []string
}

var prompts = map[chat.InterventionType]promptSpec{
	chat.InterventionTopicRedirect: {
		build: func(cc chat.ConversationContext, extra map[string]string) string {
			drift := extra["drift_topic"]
			return fmt.Sprintf(
				"The discussion has drifted away from %q%s. Draft one short, professional message that acknowledges the tangent and steers the group back to the agenda topic.",
				cc.CurrentTopic, driftClause(drift),
			)
		},
		fallback:  "We've drifted a bit from the main topic. Shall we bring it back to the agenda?",
		followUps: []string{"Restate the agenda item", "Park the tangent for later"},
	},
	chat.InterventionInfoGap: {
		build: func(cc chat.ConversationContext, extra map[string]string) string {
			req := extra["request"]
			if req == "" {
				req = "the open question in the discussion"
			}
			return fmt.Sprintf(
				"A participant needs information: %s. Current topic: %s. Draft a concise, professional answer; say plainly if the information cannot be confirmed.",
				req, cc.CurrentTopic,
			)
		},
		fallback:  "I don't have reliable data on that right now, but I can follow up once I can verify it.",
		followUps: []string{"Share a data source", "Assign someone to research this"},
	},
	chat.InterventionFactCheck: {
		build: func(cc chat.ConversationContext, extra map[string]string) string {
			claim := extra["claim"]
			return fmt.Sprintf(
				"A factual claim was made in a VC discussion: %q. Draft a short, neutral note flagging what should be verified before relying on it.",
				claim,
			)
		},
		fallback:  "That figure is worth double-checking before we build on it — I couldn't verify it just now.",
		followUps: []string{"Note the claim for diligence", "Check the source"},
	},
	chat.InterventionClarification: {
		build: func(cc chat.ConversationContext, extra map[string]string) string {
			req := extra["request"]
			return fmt.Sprintf(
				"A participant asked the assistant something unclear: %q. Draft one polite clarifying question.",
				req,
			)
		},
		fallback:  "Could you give me a bit more detail on what you'd like me to look at?",
		followUps: []string{"Narrow down the question"},
	},
	chat.InterventionSummary: {
		build: func(cc chat.ConversationContext, extra map[string]string) string {
			return "Summarize the key points, decisions, and open questions from the conversation so far in three to five bullet points."
		},
		fallback:  "Quick recap: we've covered several points — happy to pull together a fuller summary shortly.",
		followUps: []string{"Capture action items", "Confirm decisions with the group"},
	},
}

// Generate drafts a response for the chosen intervention type. An
// unrecognized type yields a labeled low-confidence result, not an error.
func (g *Generator) Generate(ctx context.Context, t chat.InterventionType, cc chat.ConversationContext, extra map[string]string) chat.GeneratedResponse {
	spec, ok := prompts[t]
	if !ok {
		return chat.GeneratedResponse{
			Text:       "I'm having trouble generating a response for this situation.",
			Type:       t,
			Confidence: 0.1,
			Source:     "fallback",
		}
	}
	if extra == nil {
		extra = map[string]string{}
	}

	prompt := spec.build(cc, extra)
	res, err := g.client.GenerateResponse(ctx, prompt, extra["transcript"])
	if err != nil || strings.TrimSpace(res.Content) == "" {
		if err != nil {
			slog.Warn("response generation failed, using fallback", "type", string(t), "error", err)
		}
		return chat.GeneratedResponse{
			Text:       spec.fallback,
			Type:       t,
			Confidence: 0.3,
			Source:     "fallback",
			FollowUps:  spec.followUps,
		}
	}

	return chat.GeneratedResponse{
		Text:        strings.TrimSpace(res.Content),
		Type:        t,
		Confidence:  res.Confidence,
		Source:      "model",
		FollowUps:   spec.followUps,
		Attribution: []string{"completion service"},
	}
}

func driftClause(drift string) string {
	if drift == "" {
		return ""
	}
	return fmt.Sprintf(" toward %q", drift)
}
