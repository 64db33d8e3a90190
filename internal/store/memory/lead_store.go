package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

// LeadStore keeps leads in a map guarded by a RWMutex. Emails are unique,
// compared case-insensitively.
type LeadStore struct {
	mu    sync.RWMutex
	leads map[string]grader.Lead
	clock grader.Clock
}

// NewLeadStore constructs a LeadStore.
func NewLeadStore(clock grader.Clock) *LeadStore {
	return &LeadStore{
		leads: make(map[string]grader.Lead),
		clock: clock,
	}
}

// CreateLead stores a new lead. A second lead with the same email is
// rejected so repeat submissions do not fan out duplicates.
func (s *LeadStore) CreateLead(_ context.Context, lead grader.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.leads[lead.ID]; exists {
		return grader.ErrLeadExists
	}
	for _, existing := range s.leads {
		if strings.EqualFold(existing.Email, lead.Email) {
			return grader.ErrLeadExists
		}
	}
	s.leads[lead.ID] = lead
	return nil
}

// GetLead fetches a lead by ID.
func (s *LeadStore) GetLead(_ context.Context, leadID string) (grader.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.leads[leadID]
	if !ok {
		return grader.Lead{}, grader.ErrLeadNotFound
	}
	return lead, nil
}

// FindLeadByEmail looks a lead up by email, case-insensitively.
func (s *LeadStore) FindLeadByEmail(_ context.Context, email string) (grader.Lead, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, lead := range s.leads {
		if strings.EqualFold(lead.Email, email) {
			return lead, true, nil
		}
	}
	return grader.Lead{}, false, nil
}

// UpdateLeadStatus moves a lead through the follow-up pipeline.
func (s *LeadStore) UpdateLeadStatus(_ context.Context, leadID string, status grader.LeadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[leadID]
	if !ok {
		return grader.ErrLeadNotFound
	}
	lead.Status = status
	if s.clock != nil {
		now := s.clock.Now().UTC()
		lead.UpdatedAt = &now
	}
	s.leads[leadID] = lead
	return nil
}

// ListLeads returns leads newest first, optionally filtered by status.
func (s *LeadStore) ListLeads(_ context.Context, status grader.LeadStatus, limit, offset int) ([]grader.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]grader.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		if status != "" && lead.Status != status {
			continue
		}
		out = append(out, lead)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset > 0 {
		if offset >= len(out) {
			return []grader.Lead{}, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
