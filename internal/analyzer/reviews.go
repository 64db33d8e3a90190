package analyzer

import (
	"context"
	"sort"
	"strings"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
	"github.com/restaurantgrader/restaurantgrader/internal/metrics"
)

// Word lists for the lexicon sentiment pass over review text.
var (
	positiveWords = []string{
		"great", "good", "excellent", "amazing", "delicious", "friendly",
		"fresh", "love", "best", "wonderful", "fantastic", "tasty", "nice",
		"recommend", "perfect",
	}
	negativeWords = []string{
		"bad", "terrible", "awful", "slow", "rude", "cold", "bland",
		"disappointing", "worst", "dirty", "overpriced", "mediocre", "stale",
	}
)

// themeKeywords maps a surfaced theme to the words that signal it.
var themeKeywords = map[string][]string{
	"food_quality": {"food", "dish", "menu", "taste", "delicious", "flavor", "fresh"},
	"service":      {"service", "staff", "waiter", "server", "friendly", "rude"},
	"atmosphere":   {"atmosphere", "ambiance", "decor", "music", "cozy", "noisy"},
	"price":        {"price", "expensive", "cheap", "value", "overpriced", "affordable"},
	"location":     {"location", "parking", "neighborhood", "downtown", "convenient"},
}

// Reviews summarizes a profile's review set with a lexicon sentiment pass.
type Reviews struct{}

// NewReviews constructs the reviews analyzer.
func NewReviews() *Reviews {
	return &Reviews{}
}

// Analyze aggregates ratings and scores the text of each review.
func (a *Reviews) Analyze(ctx context.Context, reviews []grader.Review) (grader.ReviewsAnalysis, error) {
	stop := metrics.ObserveAnalyzer("reviews")
	defer stop()

	if err := ctx.Err(); err != nil {
		return grader.ReviewsAnalysis{}, err
	}

	analysis := grader.ReviewsAnalysis{
		TotalReviews:       len(reviews),
		RatingDistribution: make(map[int]int),
	}
	if len(reviews) == 0 {
		return analysis, nil
	}

	var (
		ratingSum    float64
		sentimentSum float64
		positive     int
		themeHits    = make(map[string]int)
	)
	for _, review := range reviews {
		ratingSum += review.Rating
		bucket := int(review.Rating)
		if bucket < 1 {
			bucket = 1
		}
		if bucket > 5 {
			bucket = 5
		}
		analysis.RatingDistribution[bucket]++
		if review.Rating >= 4 {
			positive++
		}

		sentimentSum += sentimentOf(review.Text)
		countThemes(review.Text, themeHits)
	}

	analysis.AverageRating = ratingSum / float64(len(reviews))
	analysis.SentimentScore = sentimentSum / float64(len(reviews))
	analysis.PositivePercentage = float64(positive) / float64(len(reviews)) * 100
	analysis.KeyThemes = topThemes(themeHits)
	return analysis, nil
}

// sentimentOf scores one text on a -1..1 scale by counting lexicon hits.
func sentimentOf(text string) float64 {
	if text == "" {
		return 0
	}
	lowered := strings.ToLower(text)
	hits := 0
	score := 0
	for _, word := range positiveWords {
		if strings.Contains(lowered, word) {
			score++
			hits++
		}
	}
	for _, word := range negativeWords {
		if strings.Contains(lowered, word) {
			score--
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	return float64(score) / float64(hits)
}

func countThemes(text string, hits map[string]int) {
	lowered := strings.ToLower(text)
	for theme, words := range themeKeywords {
		for _, word := range words {
			if strings.Contains(lowered, word) {
				hits[theme]++
				break
			}
		}
	}
}

// topThemes returns themes mentioned in at least one review, most frequent
// first, ties broken alphabetically so output is stable.
func topThemes(hits map[string]int) []string {
	themes := make([]string, 0, len(hits))
	for theme := range hits {
		themes = append(themes, theme)
	}
	sort.Slice(themes, func(i, j int) bool {
		if hits[themes[i]] != hits[themes[j]] {
			return hits[themes[i]] > hits[themes[j]]
		}
		return themes[i] < themes[j]
	})
	return themes
}
