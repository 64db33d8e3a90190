// Package analyzer contains the services that gather signals for a scan.
// Each analyzer calls one external system (headless browser, PageSpeed API,
// Places API) or derives a bag from another analyzer's output, and returns a
// flat result bag for scoring.
package analyzer
