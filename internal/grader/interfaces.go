package grader

import (
	"context"
	"time"
)

// ScanStore persists scan documents.
type ScanStore interface {
	CreateScan(ctx context.Context, scan Scan) error
	UpdateScanStatus(ctx context.Context, scanID string, status ScanStatus, errText string) error
	SaveScanResults(ctx context.Context, scanID string, results ScoreBreakdown, analysis AnalysisData, recs []Recommendation) error
	GetScan(ctx context.Context, scanID string) (Scan, error)
	ListScans(ctx context.Context, filter ScanFilter) ([]Scan, error)
}

// ScanFilter narrows ListScans results.
type ScanFilter struct {
	Status ScanStatus
	Limit  int
	Offset int
}

// LeadStore persists captured leads.
type LeadStore interface {
	CreateLead(ctx context.Context, lead Lead) error
	GetLead(ctx context.Context, leadID string) (Lead, error)
	FindLeadByEmail(ctx context.Context, email string) (Lead, bool, error)
	UpdateLeadStatus(ctx context.Context, leadID string, status LeadStatus) error
	ListLeads(ctx context.Context, status LeadStatus, limit, offset int) ([]Lead, error)
}

// Queue provides enqueue/dequeue semantics for scan work.
type Queue interface {
	Enqueue(ctx context.Context, item ScanItem) error
	Dequeue(ctx context.Context) (ScanItem, error)
}

// WebsiteAnalyzer inspects a website and returns the flat result bag.
type WebsiteAnalyzer interface {
	Analyze(ctx context.Context, url string) (WebsiteAnalysis, error)
}

// ProfileAnalyzer looks up the business profile for a restaurant.
type ProfileAnalyzer interface {
	Profile(ctx context.Context, restaurant Restaurant) (GoogleProfile, error)
}

// ReviewsAnalyzer summarizes a review set.
type ReviewsAnalyzer interface {
	Analyze(ctx context.Context, reviews []Review) (ReviewsAnalysis, error)
}

// OrderingAnalyzer derives ordering capability from the website bag.
type OrderingAnalyzer interface {
	Analyze(ctx context.Context, website WebsiteAnalysis) (OrderingAnalysis, error)
}

// AvailabilityChecker verifies that a target URL answers at all before a
// scan record is created for it.
type AvailabilityChecker interface {
	Check(ctx context.Context, url string) error
}

// BlobStore writes evidence artifacts (screenshots) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces scan and lead IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
