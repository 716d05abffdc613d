package parse

import (
	"regexp"
	"strings"

	"github.com/law-makers/fbscrape/pkg/models"
)

var reactionKindRe = regexp.MustCompile(`(?i)\b(like|love|wow|care|sad|angry|haha)\b`)

// ParseReactionLabel reads one reaction button label ("Love: 1.2K people")
// and returns its lower-cased kind and count. ok is false when the label
// names no known reaction.
func ParseReactionLabel(label string) (kind string, count int, ok bool) {
	m := reactionKindRe.FindStringSubmatch(label)
	if m == nil {
		return "", 0, false
	}
	return strings.ToLower(m[1]), ExtractNumber(label), true
}

// ParseReactions folds reaction labels into a breakdown. Unknown labels are
// skipped; Total is the sum of the breakdown.
func ParseReactions(labels []string) models.Reactions {
	var r models.Reactions
	for _, label := range labels {
		kind, n, ok := ParseReactionLabel(label)
		if !ok {
			continue
		}
		switch kind {
		case "like":
			r.Like += n
		case "love":
			r.Love += n
		case "wow":
			r.Wow += n
		case "care":
			r.Care += n
		case "sad":
			r.Sad += n
		case "angry":
			r.Angry += n
		case "haha":
			r.Haha += n
		}
	}
	r.Total = r.Sum()
	return r
}
