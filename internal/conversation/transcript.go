package conversation

import (
	"fmt"
	"strings"
	"time"
)

// Transcript assembles the most recent n messages into a plain-text
// transcript, newest last. Used to ground summary and fact-check prompts.
func (t *Tracker) Transcript(n int) string {
	msgs := t.RecentMessages(n)
	if len(msgs) == 0 {
		return ""
	}

	var b strings.Builder
	for _, pm := range msgs {
		user := pm.Original.UserID
		if user == "" {
			user = "unknown"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n",
			pm.Original.Timestamp.Format(time.Kitchen),
			user,
			pm.Original.Content,
		)
	}
	return b.String()
}
