package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestCreateScanInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewScanStoreWithPool(mock, "scans", nil)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	scan := grader.Scan{
		ID:                "uuid-v7",
		Type:              grader.ScanTypeFull,
		RestaurantName:    "Mario's",
		RestaurantWebsite: "https://marios.example.com",
		Status:            grader.ScanStatusPending,
		CreatedAt:         now,
	}

	mock.ExpectExec("INSERT INTO scans").
		WithArgs(
			scan.ID,
			string(scan.Type),
			scan.RestaurantName,
			scan.RestaurantWebsite,
			scan.URL,
			string(scan.Status),
			scan.ErrorText,
			scan.OverallScore,
			scan.LetterGrade,
			scan.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateScan(context.Background(), scan))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateScanStatusStampsTimestamps(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	store, err := NewScanStoreWithPool(mock, "scans", fixedClock{t: now})
	require.NoError(t, err)

	mock.ExpectExec("UPDATE scans SET").
		WithArgs("uuid-v7", string(grader.ScanStatusInProgress), "", &now, (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateScanStatus(context.Background(), "uuid-v7", grader.ScanStatusInProgress, ""))

	mock.ExpectExec("UPDATE scans SET").
		WithArgs("uuid-v7", string(grader.ScanStatusFailed), "website unreachable", (*time.Time)(nil), &now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateScanStatus(context.Background(), "uuid-v7", grader.ScanStatusFailed, "website unreachable"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateScanStatusMissingScan(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewScanStoreWithPool(mock, "scans", nil)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE scans SET").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateScanStatus(context.Background(), "missing", grader.ScanStatusFailed, "boom")
	require.ErrorIs(t, err, grader.ErrScanNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveScanResults(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Unix(1700000000, 0).UTC()
	store, err := NewScanStoreWithPool(mock, "scans", fixedClock{t: now})
	require.NoError(t, err)

	results := grader.ScoreBreakdown{
		OverallScore:   78.4,
		LetterGrade:    "C",
		CategoryScores: map[string]float64{"website": 80},
		WeightedScores: map[string]float64{"website": 24},
	}
	analysis := grader.AnalysisData{Website: &grader.WebsiteAnalysis{URL: "https://marios.example.com"}}
	recs := []grader.Recommendation{{Category: "website", Priority: grader.PriorityHigh, Title: "Enable HTTPS"}}

	resultsJSON, err := json.Marshal(results)
	require.NoError(t, err)
	analysisJSON, err := json.Marshal(analysis)
	require.NoError(t, err)
	recsJSON, err := json.Marshal(recs)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE scans SET").
		WithArgs(
			"uuid-v7",
			string(grader.ScanStatusCompleted),
			results.OverallScore,
			results.LetterGrade,
			resultsJSON,
			analysisJSON,
			recsJSON,
			now,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.SaveScanResults(context.Background(), "uuid-v7", results, analysis, recs))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetScanDecodesDocument(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewScanStoreWithPool(mock, "scans", nil)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	resultsJSON := []byte(`{"overall_score":78.4,"letter_grade":"C","category_scores":{"website":80},"weighted_scores":{"website":24}}`)
	analysisJSON := []byte(`{"website":{"url":"https://marios.example.com","https_enabled":true,"mobile_friendly":true,"performance_score":80,"accessibility_score":90,"seo_score":85,"best_practices_score":88,"loading_time_ms":2100,"has_contact_form":false,"online_ordering_links_count":1,"order_button_detected":true}}`)
	recsJSON := []byte(`[{"category":"website","priority":"high","title":"Enable HTTPS","description":""}]`)

	rows := pgxmock.NewRows([]string{
		"id", "scan_type", "restaurant_name", "restaurant_website", "url", "status", "error_text",
		"overall_score", "letter_grade", "results", "analysis", "recommendations",
		"created_at", "started_at", "completed_at",
	}).AddRow(
		"uuid-v7", "full", "Mario's", "https://marios.example.com", "", "completed", "",
		78.4, "C", resultsJSON, analysisJSON, recsJSON,
		now, &now, &now,
	)

	mock.ExpectQuery("SELECT (.+) FROM scans WHERE id").
		WithArgs("uuid-v7").
		WillReturnRows(rows)

	scan, err := store.GetScan(context.Background(), "uuid-v7")
	require.NoError(t, err)
	require.Equal(t, grader.ScanStatusCompleted, scan.Status)
	require.NotNil(t, scan.Results)
	require.Equal(t, scan.Results.OverallScore, scan.OverallScore)
	require.NotNil(t, scan.Analysis)
	require.NotNil(t, scan.Analysis.Website)
	require.True(t, scan.Analysis.Website.HTTPSEnabled)
	require.Len(t, scan.Recommendations, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListScansFiltersByStatus(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewScanStoreWithPool(mock, "scans", nil)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	rows := pgxmock.NewRows([]string{
		"id", "scan_type", "restaurant_name", "restaurant_website", "url", "status", "error_text",
		"overall_score", "letter_grade", "results", "analysis", "recommendations",
		"created_at", "started_at", "completed_at",
	}).AddRow(
		"uuid-v7", "full", "Mario's", "https://marios.example.com", "", "completed", "",
		78.4, "C", []byte(nil), []byte(nil), []byte(nil),
		now, &now, &now,
	)

	mock.ExpectQuery("SELECT (.+) FROM scans WHERE status").
		WithArgs("completed", 10, 0).
		WillReturnRows(rows)

	scans, err := store.ListScans(context.Background(), grader.ScanFilter{
		Status: grader.ScanStatusCompleted,
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, scans, 1)
	require.Equal(t, "uuid-v7", scans[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
