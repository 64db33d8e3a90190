package analyzer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

// Platforms recognized as third-party ordering integrations.
var orderingPlatforms = []string{
	"doordash", "ubereats", "grubhub", "postmates", "seamless", "chownow", "toasttab",
}

// Button labels that indicate an ordering call to action.
var orderButtonPatterns = []string{
	"order online", "order now", "order", "delivery", "pickup",
}

// pageSnapshot is the raw material captured from one rendered page.
type pageSnapshot struct {
	FinalURL   string
	Title      string
	HTML       string
	BodyWidth  int64
	DurationMs int64
	Screenshot []byte
}

// capturePage navigates the tab and snapshots everything the inspection
// needs, so the page handle can be released before parsing starts. The tab is
// forced into a phone-sized viewport so the mobile check reflects what a
// phone actually renders.
func capturePage(pageCtx context.Context, target string, viewportW, viewportH int64, withScreenshot bool) (pageSnapshot, error) {
	var snap pageSnapshot
	start := time.Now()

	actions := []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDeviceMetricsOverride(viewportW, viewportH, 2.0, true).Do(ctx)
		}),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.Location(&snap.FinalURL),
		chromedp.Title(&snap.Title),
		chromedp.Evaluate("document.body.clientWidth", &snap.BodyWidth),
		chromedp.OuterHTML("html", &snap.HTML, chromedp.ByQuery),
	}
	if withScreenshot {
		actions = append(actions, chromedp.CaptureScreenshot(&snap.Screenshot))
	}
	if err := chromedp.Run(pageCtx, actions...); err != nil {
		return pageSnapshot{}, fmt.Errorf("render page: %w", err)
	}
	snap.DurationMs = time.Since(start).Milliseconds()
	return snap, nil
}

// inspectSnapshot turns a rendered page into the flat website bag fields the
// browser is responsible for. PageSpeed fields are merged in by the caller.
func inspectSnapshot(target string, snap pageSnapshot) (grader.WebsiteAnalysis, error) {
	analysis := grader.WebsiteAnalysis{
		URL:       target,
		FinalURL:  snap.FinalURL,
		PageTitle: snap.Title,
		// A 375px viewport that renders without horizontal overflow passes.
		MobileFriendly: snap.BodyWidth > 0 && snap.BodyWidth <= 480,
	}

	effective := snap.FinalURL
	if effective == "" {
		effective = target
	}
	if u, err := url.Parse(effective); err == nil {
		analysis.HTTPSEnabled = u.Scheme == "https"
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return grader.WebsiteAnalysis{}, fmt.Errorf("parse rendered html: %w", err)
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		analysis.MetaDescription = strings.TrimSpace(desc)
	}

	analysis.HasContactForm = doc.Find(`form[name*="contact"]`).Length() > 0 ||
		doc.Find(`input[type="email"]`).Length() > 0

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.ToLower(href)
		if strings.Contains(href, "order") || strings.Contains(href, "delivery") {
			analysis.OrderingLinkCount++
		}
	})

	analysis.OrderButtonFound, analysis.OrderButtonText = findOrderButton(doc)

	lowered := strings.ToLower(snap.HTML)
	for _, platform := range orderingPlatforms {
		if strings.Contains(lowered, platform) {
			analysis.Platforms = append(analysis.Platforms, platform)
		}
	}

	return analysis, nil
}

func findOrderButton(doc *goquery.Document) (bool, string) {
	found := false
	text := ""
	doc.Find("a, button").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		label := strings.ToLower(strings.TrimSpace(sel.Text()))
		if label == "" || len(label) > 40 {
			return true
		}
		for _, pattern := range orderButtonPatterns {
			if strings.Contains(label, pattern) {
				found = true
				text = strings.TrimSpace(sel.Text())
				return false
			}
		}
		return true
	})
	return found, text
}

// screenshotPath builds the evidence object path for a target URL.
func screenshotPath(target string) string {
	host := "unknown"
	if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return fmt.Sprintf("screenshots/%s.png", host)
}
