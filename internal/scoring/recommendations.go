package scoring

import (
	"fmt"
	"sort"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

// maxRecommendations bounds how many recommendations are returned per scan.
const maxRecommendations = 5

var priorityRank = map[string]int{
	grader.PriorityHigh:   0,
	grader.PriorityMedium: 1,
	grader.PriorityLow:    2,
}

// Recommendations derives actionable advice from the website bag, ordered
// high priority first and capped at maxRecommendations.
func Recommendations(w grader.WebsiteAnalysis) []grader.Recommendation {
	var recs []grader.Recommendation
	add := func(category, priority, title, description string) {
		recs = append(recs, grader.Recommendation{
			Category:    category,
			Priority:    priority,
			Title:       title,
			Description: description,
		})
	}

	if !w.HTTPSEnabled {
		add("Security", grader.PriorityHigh, "Enable HTTPS",
			"Your website is not using HTTPS. Enable SSL/TLS to secure customer data and improve SEO rankings. Most hosting providers offer free SSL certificates.")
	}
	if !w.MobileFriendly {
		add("Mobile Experience", grader.PriorityHigh, "Optimize for Mobile Devices",
			"Your website is not mobile-friendly. Over 60% of restaurant searches happen on mobile. Implement responsive design to improve customer experience.")
	}

	switch {
	case w.PerformanceScore < 50:
		add("Performance", grader.PriorityHigh, "Improve Website Speed",
			fmt.Sprintf("Your website performance score is %.0f/100. Slow websites lose customers. Optimize images, enable caching, and minimize code to improve loading times.", w.PerformanceScore))
	case w.PerformanceScore < 75:
		add("Performance", grader.PriorityMedium, "Enhance Website Performance",
			fmt.Sprintf("Your website performance score is %.0f/100. Consider optimizing images and enabling browser caching for faster load times.", w.PerformanceScore))
	}

	switch {
	case w.LoadingTimeMs > 5000:
		add("Performance", grader.PriorityHigh, "Reduce Page Load Time",
			fmt.Sprintf("Your page takes %.1f seconds to become interactive. Pages that load in under 3 seconds have significantly better conversion rates. Optimize images, reduce JavaScript, and enable compression.", float64(w.LoadingTimeMs)/1000))
	case w.LoadingTimeMs > 3000:
		add("Performance", grader.PriorityMedium, "Improve Page Load Time",
			fmt.Sprintf("Your page takes %.1f seconds to become interactive. Consider optimizing for faster load times to improve user experience.", float64(w.LoadingTimeMs)/1000))
	}

	if w.OrderingLinkCount == 0 && !w.OrderButtonFound {
		add("Online Ordering", grader.PriorityHigh, "Add Online Ordering Button",
			"No online ordering links detected. Add a prominent 'Order Online' button to capture more orders and increase revenue.")
	}
	if w.BestPractices < 80 {
		add("Best Practices", grader.PriorityMedium, "Follow Web Best Practices",
			fmt.Sprintf("Your best practices score is %.0f/100. Ensure your site uses modern web standards, secure connections, and proper error handling.", w.BestPractices))
	}
	if w.SEOScore < 70 {
		add("SEO", grader.PriorityMedium, "Improve SEO",
			fmt.Sprintf("Your SEO score is %.0f/100. Optimize meta descriptions, titles, and content to rank higher in search results and attract more customers.", w.SEOScore))
	}
	if w.AccessibilityScore < 70 {
		add("Accessibility", grader.PriorityMedium, "Enhance Accessibility",
			fmt.Sprintf("Your accessibility score is %.0f/100. Improve color contrast, add alt text to images, and ensure keyboard navigation works properly.", w.AccessibilityScore))
	}
	if !w.HasContactForm {
		add("Customer Engagement", grader.PriorityLow, "Add Contact Form",
			"No contact form detected. Make it easy for customers to reach you by adding a simple contact form or email signup.")
	}
	if w.MetaDescription == "" {
		add("SEO", grader.PriorityLow, "Add Meta Description",
			"Your website is missing a meta description. Add a compelling description to improve click-through rates from search results.")
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}
