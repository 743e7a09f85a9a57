// Package intent classifies free-form assistant input into structured
// commands. Classification is an ordered table of grammar entries, each a
// compiled pattern paired with a slot extractor, so grammars can be added and
// tested independently instead of growing a conditional chain.
package intent

import (
	"regexp"
	"strings"

	"github.com/normanking/pheoni/internal/meetings"
)

// Kind tags the classified intent variant.
type Kind int

const (
	// KindUnclassified routes to the corpus/generative fallback chain.
	KindUnclassified Kind = iota
	KindScheduleMeeting
	KindCancelMeeting
	KindListMeetings
	KindOpenLink
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindScheduleMeeting:
		return "schedule_meeting"
	case KindCancelMeeting:
		return "cancel_meeting"
	case KindListMeetings:
		return "list_meetings"
	case KindOpenLink:
		return "open_link"
	default:
		return "unclassified"
	}
}

// NotSpecified is the time slot sentinel used when a schedule command names
// no clock time. The meeting schema requires a display string for time, so
// the classifier never emits an empty slot. Defined once on the store side
// so the two packages cannot drift apart.
const NotSpecified = meetings.NotSpecified

// Intent is a classified user purpose with extracted slot values. Slots not
// used by a kind are empty.
type Intent struct {
	Kind        Kind
	DateText    string // raw date phrase, not yet normalized
	TimeText    string // raw clock phrase or NotSpecified
	Counterpart string
	LinkName    string // open-link target
	Text        string // original input, set for KindUnclassified
}

// listPhrase is the fixed listing trigger, tested before grammar matching
// since it needs no slot extraction.
const listPhrase = "what meetings do i have"

// grammar pairs a compiled command pattern with its slot extractor.
type grammar struct {
	pattern *regexp.Regexp
	extract func(groups map[string]string) Intent
}

// grammars is the fixed ordered command table. First match wins.
var grammars = []grammar{
	{
		pattern: regexp.MustCompile(`(?i)\b(?:arrange|schedule|set\s+up|book)\b.*?\bmeeting\b\s+(?:on\s+|for\s+)?(?P<date>.+?)(?:\s+at\s+(?P<time>.+?))?(?:\s+with\s+(?P<counterpart>.+?))?\s*$`),
		extract: func(g map[string]string) Intent {
			timeText := strings.TrimSpace(g["time"])
			if timeText == "" {
				timeText = NotSpecified
			}
			return Intent{
				Kind:        KindScheduleMeeting,
				DateText:    strings.TrimSpace(g["date"]),
				TimeText:    timeText,
				Counterpart: strings.TrimSpace(g["counterpart"]),
			}
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(?:cancel|delete|remove)\b.*?\bmeetings?\b\s+(?:on\s+|for\s+)?(?P<date>.+?)(?:\s+with\s+(?P<counterpart>.+?))?\s*$`),
		extract: func(g map[string]string) Intent {
			return Intent{
				Kind:        KindCancelMeeting,
				DateText:    strings.TrimSpace(g["date"]),
				Counterpart: strings.TrimSpace(g["counterpart"]),
			}
		},
	},
}

// Classify matches text against the command table and returns the extracted
// intent. Matching is case-insensitive and whitespace-tolerant. Text that
// matches nothing comes back as KindUnclassified carrying the original input.
func Classify(text string) Intent {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if strings.Contains(lower, listPhrase) {
		return Intent{Kind: KindListMeetings}
	}

	if name, ok := strings.CutPrefix(lower, "open "); ok {
		return Intent{Kind: KindOpenLink, LinkName: strings.TrimSpace(name)}
	}

	for _, g := range grammars {
		m := g.pattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		groups := make(map[string]string, len(m))
		for i, name := range g.pattern.SubexpNames() {
			if name != "" {
				groups[name] = m[i]
			}
		}
		return g.extract(groups)
	}

	return Intent{Kind: KindUnclassified, Text: trimmed}
}
