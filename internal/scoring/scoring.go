// Package scoring computes the digital-health score for a scan.
//
// The score is a fixed-weight linear composite over four category scores
// (website, google, reviews, ordering), each itself a weighted sum over the
// analyzer result bags. All scores are clamped to [0,100].
package scoring

import (
	"math"
	"time"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

// Category weights for the overall composite.
const (
	WeightWebsite  = 0.30
	WeightGoogle   = 0.30
	WeightReviews  = 0.25
	WeightOrdering = 0.15
)

// PageSpeed category weights inside the website score.
const (
	weightPerformance   = 0.40
	weightAccessibility = 0.25
	weightSEO           = 0.20
	weightBestPractices = 0.15
)

// Scorer turns analyzer result bags into category scores and the overall
// breakdown. The zero value is ready to use; a clock is only needed for the
// review-recency term.
type Scorer struct {
	clock grader.Clock
}

// New constructs a Scorer using the given clock for review recency.
func New(clock grader.Clock) *Scorer {
	return &Scorer{clock: clock}
}

// WebsiteScore scores the website bag. The PageSpeed composite carries 60% of
// the weight; mobile friendliness, HTTPS and ordering presence split the rest.
func (s *Scorer) WebsiteScore(w grader.WebsiteAnalysis) float64 {
	var composite float64
	if w.HasPageSpeedData() {
		composite = w.PerformanceScore*weightPerformance +
			w.AccessibilityScore*weightAccessibility +
			w.SEOScore*weightSEO +
			w.BestPractices*weightBestPractices
	}

	total := composite * 0.60
	if w.MobileFriendly {
		total += 15
	}
	if w.HTTPSEnabled {
		total += 15
	}
	if w.OrderButtonFound || w.OrderingLinkCount > 0 {
		total += 10
	}
	return clamp(total)
}

// GoogleScore scores the business-profile bag.
func (s *Scorer) GoogleScore(g grader.GoogleProfile) float64 {
	if !g.ProfileFound {
		return 0
	}
	var total float64
	if g.Verified {
		total += 30
	}
	total += math.Min(g.Completeness*0.5, 30)
	total += math.Min(g.ResponseRate*2, 20)
	total += math.Min(g.PostsPerMonth*2, 20)
	return clamp(total)
}

// ReviewsScore scores the review summary plus a recency/sentiment term over
// the raw reviews, if any are present.
func (s *Scorer) ReviewsScore(r grader.ReviewsAnalysis, reviews []grader.Review) float64 {
	if r.TotalReviews == 0 {
		return 0
	}
	total := math.Min(r.AverageRating*20, 40)
	total += math.Min(float64(r.TotalReviews)*0.3, 30)
	total += s.recencySentimentScore(r, reviews)
	return clamp(total)
}

// Recent reviews count for more; a review older than 30 days contributes
// nothing on the recency axis. Sentiment is shifted from [-1,1] to [0,100].
func (s *Scorer) recencySentimentScore(r grader.ReviewsAnalysis, reviews []grader.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	now := time.Now().UTC()
	if s.clock != nil {
		now = s.clock.Now()
	}
	sentiment := (r.SentimentScore + 1) * 50

	var sum float64
	var n int
	for _, review := range reviews {
		if review.Time.IsZero() {
			continue
		}
		days := now.Sub(review.Time).Hours() / 24
		recency := math.Max(0, 100-(days/30*100))
		sum += (recency + sentiment) / 2
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Min(sum/float64(n), 30)
}

// OrderingScore scores the ordering-capability bag.
func (s *Scorer) OrderingScore(o grader.OrderingAnalysis) float64 {
	var total float64
	if o.HasOrderingSystem {
		total += 40
	}
	total += math.Min(float64(len(o.Platforms))*10, 30)
	if o.DirectOrdering {
		total += 20
	}
	total += math.Min(o.OrderButtonEase*10, 10)
	return clamp(total)
}

// Overall combines the four category scores into the persisted breakdown.
// The top-level overall score on the scan document must mirror
// Results.OverallScore exactly; callers copy it from the returned breakdown.
func (s *Scorer) Overall(website, google, reviews, ordering float64) grader.ScoreBreakdown {
	weighted := map[string]float64{
		"website":  round2(website * WeightWebsite),
		"google":   round2(google * WeightGoogle),
		"reviews":  round2(reviews * WeightReviews),
		"ordering": round2(ordering * WeightOrdering),
	}

	overall := website*WeightWebsite + google*WeightGoogle +
		reviews*WeightReviews + ordering*WeightOrdering

	return grader.ScoreBreakdown{
		OverallScore: round2(clamp(overall)),
		LetterGrade:  LetterGrade(overall),
		CategoryScores: map[string]float64{
			"website":  round2(website),
			"google":   round2(google),
			"reviews":  round2(reviews),
			"ordering": round2(ordering),
		},
		WeightedScores: weighted,
	}
}

// LetterGrade maps a 0-100 score onto A..F.
func LetterGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
