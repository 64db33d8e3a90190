package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

func TestLeadStoreCreateAndFetch(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	store := NewLeadStore(fixedClock{t: now})
	ctx := context.Background()

	lead := grader.Lead{
		ID:        "lead-1",
		Email:     "owner@example.com",
		Status:    grader.LeadStatusNew,
		CreatedAt: now,
	}
	require.NoError(t, store.CreateLead(ctx, lead))

	got, err := store.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	require.Equal(t, "owner@example.com", got.Email)

	found, ok, err := store.FindLeadByEmail(ctx, "OWNER@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "lead-1", found.ID)

	_, ok, err = store.FindLeadByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLeadStoreDuplicateEmail(t *testing.T) {
	t.Parallel()

	store := NewLeadStore(nil)
	ctx := context.Background()

	require.NoError(t, store.CreateLead(ctx, grader.Lead{ID: "lead-1", Email: "owner@example.com"}))
	err := store.CreateLead(ctx, grader.Lead{ID: "lead-2", Email: "Owner@Example.com"})
	require.ErrorIs(t, err, grader.ErrLeadExists)
}

func TestLeadStoreStatusUpdate(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	store := NewLeadStore(fixedClock{t: now})
	ctx := context.Background()

	require.NoError(t, store.CreateLead(ctx, grader.Lead{ID: "lead-1", Email: "owner@example.com", Status: grader.LeadStatusNew}))
	require.NoError(t, store.UpdateLeadStatus(ctx, "lead-1", grader.LeadStatusContacted))

	got, err := store.GetLead(ctx, "lead-1")
	require.NoError(t, err)
	require.Equal(t, grader.LeadStatusContacted, got.Status)
	require.NotNil(t, got.UpdatedAt)

	require.ErrorIs(t, store.UpdateLeadStatus(ctx, "missing", grader.LeadStatusContacted), grader.ErrLeadNotFound)
}

func TestLeadStoreList(t *testing.T) {
	t.Parallel()

	store := NewLeadStore(nil)
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	require.NoError(t, store.CreateLead(ctx, grader.Lead{ID: "a", Email: "a@example.com", Status: grader.LeadStatusNew, CreatedAt: base}))
	require.NoError(t, store.CreateLead(ctx, grader.Lead{ID: "b", Email: "b@example.com", Status: grader.LeadStatusContacted, CreatedAt: base.Add(time.Minute)}))

	all, err := store.ListLeads(ctx, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "b", all[0].ID)

	contacted, err := store.ListLeads(ctx, grader.LeadStatusContacted, 0, 0)
	require.NoError(t, err)
	require.Len(t, contacted, 1)
	require.Equal(t, "b", contacted[0].ID)
}
