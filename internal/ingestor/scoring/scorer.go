package scoring

import (
	"strings"

	"finnews-notifier/internal/ingestor/source"
)

// Keyword sets per language. Unknown languages fall back to French, the
// application's primary locale.
var announcementKeywords = map[string][]string{
	"fr": {"annonce", "décision", "plan", "changement", "crise"},
	"en": {"announcement", "decision", "plan", "change", "crisis"},
}

var marketImpactKeywords = map[string][]string{
	"fr": {"hausse", "baisse", "chute", "augmentation", "diminution"},
	"en": {"rise", "fall", "drop", "increase", "decrease"},
}

const (
	announcementWeight = 10
	marketImpactWeight = 15
	symbolWeight       = 5

	longArticleWords   = 300
	mediumArticleWords = 100
	longArticleBonus   = 20
	mediumArticleBonus = 10
)

// Score computes the heuristic importance of a news item. It is a pure
// function of its inputs. Announcement keywords are matched against the short
// description only, market-impact keywords against the flattened article body
// only; the two scans are intentionally independent.
func Score(language, description string, ast *source.ASTNode, relatedSymbols int) int {
	score := 0

	desc := strings.ToLower(description)
	for _, kw := range keywordsFor(announcementKeywords, language) {
		if strings.Contains(desc, kw) {
			score += announcementWeight
		}
	}

	text := ast.Flatten()
	words := len(strings.Fields(text))
	switch {
	case words > longArticleWords:
		score += longArticleBonus
	case words > mediumArticleWords:
		score += mediumArticleBonus
	}

	for _, kw := range keywordsFor(marketImpactKeywords, language) {
		if strings.Contains(text, kw) {
			score += marketImpactWeight
		}
	}

	score += symbolWeight * relatedSymbols

	return score
}

func keywordsFor(sets map[string][]string, language string) []string {
	if kws, ok := sets[language]; ok {
		return kws
	}
	return sets["fr"]
}
