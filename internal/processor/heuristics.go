package processor

import (
	"regexp"
	"strings"

	"github.com/thesathwik/brainstorm-buddy/internal/chat"
)

// Local heuristics used when the completion service fails or returns
// something unparseable. Intentionally simple — they keep the pipeline
// alive, they don't compete with the model.

var (
	companyPattern   = regexp.MustCompile(`\b[A-Z][A-Za-z0-9&.-]*(?:\s+[A-Z][A-Za-z0-9&.-]*)*\s+(?:Inc|Corp|LLC|Ltd|Company|Co)\.?\b`)
	financialPattern = regexp.MustCompile(`(?:[$€£¥]\s?\d[\d,.]*(?:\s?(?:K|M|B|k|m|b|million|billion|thousand))?|\b\d+(?:\.\d+)?\s?%)`)
)

var positiveWords = map[string]bool{
	"great": true, "good": true, "excellent": true, "promising": true,
	"strong": true, "love": true, "exciting": true, "impressive": true,
	"solid": true, "agree": true, "perfect": true, "win": true,
	"growth": true, "opportunity": true, "best": true, "like": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "weak": true, "risky": true,
	"concern": true, "concerned": true, "worried": true, "problem": true,
	"fail": true, "failure": true, "loss": true, "decline": true,
	"doubt": true, "hate": true, "wrong": true, "worst": true,
}

var urgentWords = []string{"urgent", "asap", "immediately", "emergency", "critical", "right now"}

var importantWords = []string{"important", "deadline", "priority", "must", "due"}

var investmentKeywords = []string{
	"investment", "invest", "funding", "valuation", "round", "equity",
	"term sheet", "cap table", "dilution", "portfolio", "due diligence", "exit",
}

var marketKeywords = []string{
	"market", "competitor", "competition", "industry", "sector", "customer",
	"demand", "trend", "growth rate", "tam", "adoption",
}

// extractEntitiesHeuristic finds company-suffix patterns and financial values.
func extractEntitiesHeuristic(content string) []chat.Entity {
	var out []chat.Entity
	for _, m := range companyPattern.FindAllString(content, -1) {
		out = append(out, chat.Entity{Text: m, Kind: chat.EntityCompany})
	}
	for _, m := range financialPattern.FindAllString(content, -1) {
		out = append(out, chat.Entity{Text: m, Kind: chat.EntityFinancial})
	}
	return out
}

// analyzeSentimentHeuristic counts polarity words normalized by word count.
func analyzeSentimentHeuristic(content string) chat.Sentiment {
	words := strings.Fields(strings.ToLower(content))
	if len(words) == 0 {
		return chat.Sentiment{Neutral: 1}
	}

	var pos, neg float64
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"()")
		if positiveWords[w] {
			pos++
		}
		if negativeWords[w] {
			neg++
		}
	}

	total := float64(len(words))
	s := chat.Sentiment{
		Positive: pos / total,
		Negative: neg / total,
	}
	s.Neutral = 1 - s.Positive - s.Negative
	if s.Neutral < 0 {
		s.Neutral = 0
	}
	s.Overall = clamp(s.Positive-s.Negative, -1, 1)
	return s
}

// classifyTopicsHeuristic scores keyword-set membership against the fixed
// vocabularies. A message matching nothing is off_topic.
func classifyTopicsHeuristic(content string) []chat.TopicClassification {
	lower := strings.ToLower(content)

	var out []chat.TopicClassification
	if score := keywordScore(lower, investmentKeywords); score > 0 {
		out = append(out, chat.TopicClassification{Category: "investment", Confidence: score})
	}
	if score := keywordScore(lower, marketKeywords); score > 0 {
		out = append(out, chat.TopicClassification{Category: "market", Confidence: score})
	}
	if len(out) == 0 {
		out = append(out, chat.TopicClassification{Category: "off_topic", Confidence: 0.8})
	}
	return out
}

func keywordScore(lower string, keywords []string) float64 {
	var hits float64
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	// Two or more distinct keyword hits reads as a confident match.
	score := 0.5 + hits*0.2
	return clamp(score, 0, 0.95)
}

// determineUrgency is always computed locally, never delegated to the model.
func determineUrgency(content string, sentiment chat.Sentiment) chat.UrgencyLevel {
	lower := strings.ToLower(content)
	for _, w := range urgentWords {
		if strings.Contains(lower, w) {
			return chat.UrgencyHigh
		}
	}
	for _, w := range importantWords {
		if strings.Contains(lower, w) {
			return chat.UrgencyMedium
		}
	}
	if sentiment.Negative > 0.7 {
		return chat.UrgencyMedium
	}
	return chat.UrgencyLow
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
