// Package grader defines core types shared across subsystems.
package grader

import (
	"time"
)

// ScanStatus represents the lifecycle state of a scan.
type ScanStatus string

// Scan status values persisted in the scan store.
const (
	ScanStatusPending    ScanStatus = "pending"
	ScanStatusInProgress ScanStatus = "in_progress"
	ScanStatusCompleted  ScanStatus = "completed"
	ScanStatusFailed     ScanStatus = "failed"
)

// ScanType distinguishes full restaurant scans from website-only analyses.
type ScanType string

// Scan type values.
const (
	ScanTypeFull        ScanType = "full"
	ScanTypeWebsiteOnly ScanType = "website_only"
)

// Terminal reports whether the status is a final state.
func (s ScanStatus) Terminal() bool {
	switch s {
	case ScanStatusCompleted, ScanStatusFailed:
		return true
	default:
		return false
	}
}

// Restaurant identifies the scan target as submitted by the client.
type Restaurant struct {
	Name        string  `json:"name"`
	Website     string  `json:"website"`
	Address     string  `json:"address,omitempty"`
	Category    string  `json:"category,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`
	Relevance   float64 `json:"relevance,omitempty"`
}

// Scan is the document persisted for each grading request. The top-level
// OverallScore and LetterGrade mirror Results so clients can read either the
// flat or the nested shape.
type Scan struct {
	ID                string           `json:"scan_id"`
	Type              ScanType         `json:"type"`
	RestaurantName    string           `json:"restaurant_name,omitempty"`
	RestaurantWebsite string           `json:"restaurant_website,omitempty"`
	URL               string           `json:"url,omitempty"`
	Status            ScanStatus       `json:"status"`
	OverallScore      float64          `json:"overall_score"`
	LetterGrade       string           `json:"letter_grade,omitempty"`
	Results           *ScoreBreakdown  `json:"results,omitempty"`
	Analysis          *AnalysisData    `json:"analysis_data,omitempty"`
	Recommendations   []Recommendation `json:"recommendations,omitempty"`
	ErrorText         string           `json:"error_message,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	StartedAt         *time.Time       `json:"started_at,omitempty"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
}

// ScoreBreakdown is the nested scoring document stored under Scan.Results.
type ScoreBreakdown struct {
	OverallScore   float64            `json:"overall_score"`
	LetterGrade    string             `json:"letter_grade"`
	CategoryScores map[string]float64 `json:"category_scores"`
	WeightedScores map[string]float64 `json:"weighted_scores"`
}

// AnalysisData collects the per-analyzer result bags for a scan.
type AnalysisData struct {
	Website  *WebsiteAnalysis  `json:"website,omitempty"`
	Google   *GoogleProfile    `json:"google,omitempty"`
	Reviews  *ReviewsAnalysis  `json:"reviews,omitempty"`
	Ordering *OrderingAnalysis `json:"ordering,omitempty"`
}

// WebsiteAnalysis is the flat result bag produced by the website analyzer.
type WebsiteAnalysis struct {
	URL                string   `json:"url"`
	FinalURL           string   `json:"final_url,omitempty"`
	HTTPSEnabled       bool     `json:"https_enabled"`
	MobileFriendly     bool     `json:"mobile_friendly"`
	PerformanceScore   float64  `json:"performance_score"`
	AccessibilityScore float64  `json:"accessibility_score"`
	SEOScore           float64  `json:"seo_score"`
	BestPractices      float64  `json:"best_practices_score"`
	LoadingTimeMs      int64    `json:"loading_time_ms"`
	PageTitle          string   `json:"page_title,omitempty"`
	MetaDescription    string   `json:"meta_description,omitempty"`
	HasContactForm     bool     `json:"has_contact_form"`
	OrderingLinkCount  int      `json:"online_ordering_links_count"`
	OrderButtonFound   bool     `json:"order_button_detected"`
	OrderButtonText    string   `json:"order_button_text,omitempty"`
	Platforms          []string `json:"platforms,omitempty"`
	ScreenshotURI      string   `json:"screenshot_uri,omitempty"`
}

// HasPageSpeedData reports whether any PageSpeed category came back non-zero.
func (w *WebsiteAnalysis) HasPageSpeedData() bool {
	if w == nil {
		return false
	}
	return w.PerformanceScore > 0 || w.AccessibilityScore > 0 ||
		w.SEOScore > 0 || w.BestPractices > 0
}

// Empty reports whether the bag carries no usable signal at all. An empty
// website analysis must fail the scan rather than score it as zero.
func (w *WebsiteAnalysis) Empty() bool {
	if w == nil {
		return true
	}
	return !w.HasPageSpeedData() && w.PageTitle == "" && w.FinalURL == "" &&
		!w.HTTPSEnabled && w.LoadingTimeMs == 0
}

// GoogleProfile is the business-profile bag from the places analyzer.
type GoogleProfile struct {
	ProfileFound  bool     `json:"profile_found"`
	Verified      bool     `json:"is_verified"`
	Name          string   `json:"name,omitempty"`
	Rating        float64  `json:"rating"`
	ReviewCount   int      `json:"review_count"`
	PhotosCount   int      `json:"photos_count"`
	Completeness  float64  `json:"profile_completeness"`
	ResponseRate  float64  `json:"response_rate"`
	PostsPerMonth float64  `json:"posts_per_month"`
	Reviews       []Review `json:"recent_reviews,omitempty"`
	Placeholder   bool     `json:"placeholder,omitempty"`
}

// Review is a single customer review attached to a profile.
type Review struct {
	Rating float64   `json:"rating"`
	Text   string    `json:"text,omitempty"`
	Time   time.Time `json:"time"`
}

// ReviewsAnalysis summarizes sentiment and volume over a review set.
type ReviewsAnalysis struct {
	TotalReviews       int         `json:"total_reviews"`
	AverageRating      float64     `json:"average_rating"`
	SentimentScore     float64     `json:"sentiment_score"`
	PositivePercentage float64     `json:"positive_review_percentage"`
	RatingDistribution map[int]int `json:"rating_distribution,omitempty"`
	KeyThemes          []string    `json:"key_themes,omitempty"`
}

// OrderingAnalysis captures online-ordering capability signals.
type OrderingAnalysis struct {
	HasOrderingSystem bool     `json:"has_ordering_system"`
	Platforms         []string `json:"platforms,omitempty"`
	DirectOrdering    bool     `json:"direct_ordering"`
	OrderButtonEase   float64  `json:"order_button_ease"`
}

// Recommendation is one actionable improvement surfaced to the client.
type Recommendation struct {
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Recommendation priorities, ordered high to low.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// LeadStatus tracks follow-up progress on a captured lead.
type LeadStatus string

// Lead status values.
const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusConverted   LeadStatus = "converted"
	LeadStatusUnqualified LeadStatus = "unqualified"
)

// Lead is a contact captured for follow-up, optionally tied to a scan.
type Lead struct {
	ID             string     `json:"lead_id"`
	Email          string     `json:"email"`
	Name           string     `json:"name,omitempty"`
	RestaurantName string     `json:"restaurant_name,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Source         string     `json:"source,omitempty"`
	Status         LeadStatus `json:"status"`
	ScanID         string     `json:"associated_scan_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// ScanItem wraps a scan ready to run on the worker pool.
type ScanItem struct {
	ScanID     string
	Restaurant Restaurant
	Submitted  int64
}

// CompletionEvent is published when a scan reaches a terminal state.
type CompletionEvent struct {
	ScanID       string     `json:"scan_id"`
	Status       ScanStatus `json:"status"`
	OverallScore float64    `json:"overall_score"`
	LetterGrade  string     `json:"letter_grade,omitempty"`
	Timestamp    string     `json:"timestamp"`
}
