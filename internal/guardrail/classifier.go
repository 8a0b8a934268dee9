package guardrail

import "regexp"

// Category names one rejection class. Categories are checked in a fixed
// priority order; the first matching category wins.
type Category string

const (
	CategoryGreeting           Category = "greeting"
	CategoryOffTopic           Category = "off_topic"
	CategoryInjection          Category = "injection"
	CategoryPromptManipulation Category = "prompt_manipulation"
)

type Verdict struct {
	Allowed  bool
	Category Category
}

var allowed = Verdict{Allowed: true}

type rule struct {
	category Category
	patterns []*regexp.Regexp
}

// Classifier is a stateless text classifier over the four guardrail
// categories. Classification is deterministic and performs no I/O, cheap
// enough to run on every inbound message before any model call.
type Classifier struct {
	rules []rule
}

func NewClassifier() *Classifier {
	return &Classifier{
		rules: []rule{
			{category: CategoryPromptManipulation, patterns: promptManipulationPatterns},
			{category: CategoryInjection, patterns: injectionPatterns},
			{category: CategoryOffTopic, patterns: offTopicPatterns},
			{category: CategoryGreeting, patterns: greetingPatterns},
		},
	}
}

// Classify runs the ordered category checks against the normalized input.
func (c *Classifier) Classify(text string) Verdict {
	normalized := Normalize(text)
	for _, r := range c.rules {
		if matchesAny(normalized, r.patterns) {
			return Verdict{Category: r.category}
		}
	}
	return allowed
}

// CheckInjection applies only the injection category, used as a post-hoc
// check on model-generated query text.
func (c *Classifier) CheckInjection(text string) Verdict {
	if matchesAny(Normalize(text), injectionPatterns) {
		return Verdict{Category: CategoryInjection}
	}
	return allowed
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}
