package analyzer

import (
	"context"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
	"github.com/restaurantgrader/restaurantgrader/internal/metrics"
)

// Ordering derives the online-ordering bag from the website analysis; it does
// no network calls of its own.
type Ordering struct{}

// NewOrdering constructs the ordering analyzer.
func NewOrdering() *Ordering {
	return &Ordering{}
}

// Analyze reads ordering signals out of the website bag.
func (a *Ordering) Analyze(ctx context.Context, website grader.WebsiteAnalysis) (grader.OrderingAnalysis, error) {
	stop := metrics.ObserveAnalyzer("ordering")
	defer stop()

	if err := ctx.Err(); err != nil {
		return grader.OrderingAnalysis{}, err
	}

	analysis := grader.OrderingAnalysis{
		HasOrderingSystem: website.OrderingLinkCount > 0 || website.OrderButtonFound || len(website.Platforms) > 0,
		Platforms:         append([]string(nil), website.Platforms...),
		DirectOrdering:    website.OrderButtonFound && len(website.Platforms) == 0,
	}

	// Ease is a 0-1 signal: a visible order button is most of it, extra
	// ordering links add the rest.
	if website.OrderButtonFound {
		analysis.OrderButtonEase = 0.7
	}
	if website.OrderingLinkCount > 0 {
		analysis.OrderButtonEase += 0.3
	}
	if analysis.OrderButtonEase > 1 {
		analysis.OrderButtonEase = 1
	}
	return analysis, nil
}
