package grader

import "errors"

// Sentinel errors shared by every store implementation so handlers can map
// them to HTTP statuses without knowing the backend.
var (
	ErrScanNotFound = errors.New("scan not found")
	ErrScanExists   = errors.New("scan already exists")
	ErrLeadNotFound = errors.New("lead not found")
	ErrLeadExists   = errors.New("lead already exists")
)
