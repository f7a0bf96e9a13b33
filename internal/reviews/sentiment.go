// Package reviews scores customer reviews for sentiment.
package reviews

import "strings"

var positiveWords = map[string]struct{}{
	"amazing": {}, "attentive": {}, "awesome": {}, "best": {},
	"delicious": {}, "excellent": {}, "fantastic": {}, "favorite": {},
	"fresh": {}, "friendly": {}, "great": {}, "love": {}, "loved": {},
	"perfect": {}, "recommend": {}, "tasty": {}, "wonderful": {},
}

var negativeWords = map[string]struct{}{
	"awful": {}, "bad": {}, "bland": {}, "cold": {}, "dirty": {},
	"disappointing": {}, "disgusting": {}, "horrible": {}, "mediocre": {},
	"overpriced": {}, "rude": {}, "slow": {}, "stale": {}, "terrible": {},
	"worst": {},
}

// Score rates review text on a 0-100 scale, 50 being neutral. It is a
// small lexicon heuristic: the balance of positive and negative words
// shifts the score away from neutral.
func Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 50
	}

	positives, negatives := 0, 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:'\"()")
		if _, ok := positiveWords[word]; ok {
			positives++
		}
		if _, ok := negativeWords[word]; ok {
			negatives++
		}
	}

	total := positives + negatives
	if total == 0 {
		return 50
	}
	score := 50 + 50*float64(positives-negatives)/float64(total)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
