package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"github.com/vncsmyrnk/pollr/internal/testutil"
)

func TestSummaryRefresh(t *testing.T) {
	app := setupTestApp(t, 0)
	ctx := context.Background()

	voter := uuid.New()
	org := app.organization(t, uuid.New(), voter)
	busy := app.ongoingElection(t, org.ID, domain.VisibilityPublic)
	quiet := app.ongoingElection(t, org.ID, domain.VisibilityPublic)
	app.Fixtures.CreateElection(ctx, org.ID, app.Now().Add(time.Hour), app.Now().Add(2*time.Hour), domain.VisibilityPublic)
	chair, alice := testutil.CandidateID(t, busy, "Chair", "Alice")

	_, err := app.VoteService.CastAs(ctx, voter, busy.ID, chair, alice)
	require.NoError(t, err)

	require.NoError(t, app.SummaryService.Refresh(ctx))
	require.NoError(t, app.SummaryService.Refresh(ctx))

	summaries, err := app.Results.GetSummaries(ctx, busy.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 4)
	for _, s := range summaries {
		if s.CandidateID == alice {
			assert.Equal(t, int64(1), s.VoteCount)
		} else {
			assert.Zero(t, s.VoteCount)
		}
		assert.True(t, s.RefreshedAt.Equal(app.Now()))
	}

	ongoing := domain.StatusOngoing
	listed, err := app.ElectionService.List(ctx, ports.ListElectionsInput{OrganizationID: &org.ID, Status: &ongoing})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, busy.ID, listed[0].ID)
	assert.Equal(t, quiet.ID, listed[1].ID)
}
