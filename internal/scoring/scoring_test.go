package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestScorer() *Scorer {
	return New(fixedClock{t: testNow})
}

func TestWebsiteScorePerfectSite(t *testing.T) {
	s := newTestScorer()
	score := s.WebsiteScore(grader.WebsiteAnalysis{
		HTTPSEnabled:       true,
		MobileFriendly:     true,
		PerformanceScore:   100,
		AccessibilityScore: 100,
		SEOScore:           100,
		BestPractices:      100,
		OrderButtonFound:   true,
	})
	require.Equal(t, 100.0, score)
}

func TestWebsiteScoreComposite(t *testing.T) {
	s := newTestScorer()
	score := s.WebsiteScore(grader.WebsiteAnalysis{
		HTTPSEnabled:       true,
		MobileFriendly:     false,
		PerformanceScore:   80,
		AccessibilityScore: 60,
		SEOScore:           70,
		BestPractices:      50,
	})
	// composite = 80*.40 + 60*.25 + 70*.20 + 50*.15 = 68.5
	// total = 68.5*.60 + 15 (https) = 56.1
	require.InDelta(t, 56.1, score, 0.001)
}

func TestWebsiteScoreNoPageSpeedData(t *testing.T) {
	s := newTestScorer()
	score := s.WebsiteScore(grader.WebsiteAnalysis{
		HTTPSEnabled:   true,
		MobileFriendly: true,
	})
	require.Equal(t, 30.0, score)
}

func TestGoogleScoreProfileMissing(t *testing.T) {
	s := newTestScorer()
	require.Equal(t, 0.0, s.GoogleScore(grader.GoogleProfile{ProfileFound: false, Verified: true}))
}

func TestGoogleScoreCapsEachTerm(t *testing.T) {
	s := newTestScorer()
	score := s.GoogleScore(grader.GoogleProfile{
		ProfileFound:  true,
		Verified:      true,
		Completeness:  100,
		ResponseRate:  100,
		PostsPerMonth: 50,
	})
	require.Equal(t, 100.0, score)
}

func TestGoogleScorePartialProfile(t *testing.T) {
	s := newTestScorer()
	score := s.GoogleScore(grader.GoogleProfile{
		ProfileFound:  true,
		Verified:      false,
		Completeness:  40,
		ResponseRate:  5,
		PostsPerMonth: 2,
	})
	// 0 + 20 + 10 + 4
	require.Equal(t, 34.0, score)
}

func TestReviewsScoreZeroReviews(t *testing.T) {
	s := newTestScorer()
	require.Equal(t, 0.0, s.ReviewsScore(grader.ReviewsAnalysis{}, nil))
}

func TestReviewsScoreRecentPositiveReviews(t *testing.T) {
	s := newTestScorer()
	summary := grader.ReviewsAnalysis{
		TotalReviews:   200,
		AverageRating:  4.5,
		SentimentScore: 1,
	}
	reviews := []grader.Review{
		{Rating: 5, Time: testNow.Add(-24 * time.Hour)},
	}
	// 40 (rating capped) + 30 (count capped) + 30 (recency/sentiment capped)
	require.Equal(t, 100.0, s.ReviewsScore(summary, reviews))
}

func TestReviewsScoreStaleReviews(t *testing.T) {
	s := newTestScorer()
	summary := grader.ReviewsAnalysis{
		TotalReviews:   10,
		AverageRating:  3,
		SentimentScore: -1,
	}
	reviews := []grader.Review{
		{Rating: 2, Time: testNow.AddDate(0, -6, 0)},
	}
	// min(60,40) + 3 + (0 recency + 0 sentiment)/2
	require.InDelta(t, 43.0, s.ReviewsScore(summary, reviews), 0.001)
}

func TestOrderingScore(t *testing.T) {
	s := newTestScorer()

	score := s.OrderingScore(grader.OrderingAnalysis{})
	require.Equal(t, 0.0, score)

	score = s.OrderingScore(grader.OrderingAnalysis{
		HasOrderingSystem: true,
		Platforms:         []string{"doordash", "ubereats", "grubhub", "seamless"},
		DirectOrdering:    true,
		OrderButtonEase:   1,
	})
	// 40 + min(40,30) + 20 + 10
	require.Equal(t, 100.0, score)
}

func TestOverallMirrorsWeights(t *testing.T) {
	s := newTestScorer()
	breakdown := s.Overall(80, 60, 40, 20)

	// 80*.30 + 60*.30 + 40*.25 + 20*.15 = 55
	require.Equal(t, 55.0, breakdown.OverallScore)
	require.Equal(t, "F", breakdown.LetterGrade)
	require.Equal(t, 80.0, breakdown.CategoryScores["website"])
	require.Equal(t, 24.0, breakdown.WeightedScores["website"])
	require.Equal(t, 18.0, breakdown.WeightedScores["google"])
	require.Equal(t, 10.0, breakdown.WeightedScores["reviews"])
	require.Equal(t, 3.0, breakdown.WeightedScores["ordering"])
}

func TestLetterGradeBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		grade string
	}{
		{100, "A"}, {90, "A"}, {89.99, "B"}, {80, "B"},
		{79.99, "C"}, {70, "C"}, {69.99, "D"}, {60, "D"},
		{59.99, "F"}, {0, "F"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.grade, LetterGrade(tc.score), "score %.2f", tc.score)
	}
}

func TestClampBounds(t *testing.T) {
	require.Equal(t, 100.0, clamp(150))
	require.Equal(t, 0.0, clamp(-5))
	require.Equal(t, 42.0, clamp(42))
}
