package sentiment

import "strings"

// Stock word lists. Deployments that want a richer model swap in their own
// lists via NewScorer; the scoring contract stays the same.
var (
	DefaultPositiveWords = []string{
		"happy", "good", "great", "excellent", "awesome", "fantastic", "love",
		"like", "nice", "wonderful", "amazing", "best", "better", "cool",
		"perfect", "fun", "enjoy", "beautiful", "pretty",
	}

	DefaultNegativeWords = []string{
		"sad", "bad", "terrible", "awful", "hate", "dislike", "angry", "worse",
		"worst", "horrible", "annoying", "frustrating", "stupid", "boring",
		"ugly", "disappointed", "poor", "nasty", "fail", "sucks",
	}
)

// Scorer counts positive and negative tokens in message text. Pure and
// deterministic: same input always yields the same score.
type Scorer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewScorer builds a scorer from the given word lists. Words are matched
// case-insensitively against whitespace-delimited tokens.
func NewScorer(positive, negative []string) *Scorer {
	s := &Scorer{
		positive: make(map[string]struct{}, len(positive)),
		negative: make(map[string]struct{}, len(negative)),
	}
	for _, w := range positive {
		s.positive[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range negative {
		s.negative[strings.ToLower(w)] = struct{}{}
	}
	return s
}

// NewDefaultScorer builds a scorer with the stock word lists.
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultPositiveWords, DefaultNegativeWords)
}

// Score adds +1 per positive token and -1 per negative token. Unrecognized
// tokens contribute 0, so empty input scores 0.
func (s *Scorer) Score(text string) int {
	score := 0
	for _, token := range strings.Fields(strings.ToLower(text)) {
		if _, ok := s.positive[token]; ok {
			score++
			continue
		}
		if _, ok := s.negative[token]; ok {
			score--
		}
	}
	return score
}
