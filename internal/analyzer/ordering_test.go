package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

func TestOrderingAnalyzeNoSignals(t *testing.T) {
	a := NewOrdering()
	analysis, err := a.Analyze(context.Background(), grader.WebsiteAnalysis{})
	require.NoError(t, err)
	require.False(t, analysis.HasOrderingSystem)
	require.False(t, analysis.DirectOrdering)
	require.Zero(t, analysis.OrderButtonEase)
}

func TestOrderingAnalyzeDirectButton(t *testing.T) {
	a := NewOrdering()
	analysis, err := a.Analyze(context.Background(), grader.WebsiteAnalysis{
		OrderButtonFound: true,
	})
	require.NoError(t, err)
	require.True(t, analysis.HasOrderingSystem)
	require.True(t, analysis.DirectOrdering)
	require.InDelta(t, 0.7, analysis.OrderButtonEase, 0.001)
}

func TestOrderingAnalyzePlatformsOnly(t *testing.T) {
	a := NewOrdering()
	analysis, err := a.Analyze(context.Background(), grader.WebsiteAnalysis{
		Platforms:         []string{"doordash", "ubereats"},
		OrderingLinkCount: 2,
	})
	require.NoError(t, err)
	require.True(t, analysis.HasOrderingSystem)
	require.False(t, analysis.DirectOrdering)
	require.Equal(t, []string{"doordash", "ubereats"}, analysis.Platforms)
	require.InDelta(t, 0.3, analysis.OrderButtonEase, 0.001)
}

func TestOrderingAnalyzeEaseCapped(t *testing.T) {
	a := NewOrdering()
	analysis, err := a.Analyze(context.Background(), grader.WebsiteAnalysis{
		OrderButtonFound:  true,
		OrderingLinkCount: 5,
		Platforms:         []string{"doordash"},
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, analysis.OrderButtonEase)
	// Third-party platforms mean the button is not a direct channel.
	require.False(t, analysis.DirectOrdering)
}
