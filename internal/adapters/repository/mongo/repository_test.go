package mongo_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/pollr/internal/adapters/repository/mongo"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"github.com/vncsmyrnk/pollr/internal/testutil"
)

type repos struct {
	elections   ports.ElectionRepository
	votes       ports.VoteRepository
	memberships ports.MembershipRepository
	results     ports.ResultRepository
	fixtures    *testutil.Fixtures
}

func TestMongoRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	store := testutil.MongoStore(t)
	setup := func(t *testing.T) *repos {
		r := &repos{
			elections:   mongo.NewElectionRepository(store),
			votes:       mongo.NewVoteRepository(store),
			memberships: mongo.NewMembershipRepository(store),
			results:     mongo.NewResultRepository(store),
		}
		r.fixtures = testutil.NewFixtures(t, r.elections, r.memberships)
		return r
	}

	t.Run("duplicate vote is rejected by the store", func(t *testing.T) { testDuplicateVote(t, setup(t)) })
	t.Run("concurrent casts leave exactly one vote", func(t *testing.T) { testConcurrentInsert(t, setup(t)) })
	t.Run("batch is all or nothing", func(t *testing.T) { testInsertBatchRollback(t, setup(t)) })
	t.Run("counts and voter listing", func(t *testing.T) { testCounts(t, setup(t)) })
	t.Run("election with ballot round trip", func(t *testing.T) { testElectionRoundTrip(t, setup(t)) })
	t.Run("duplicate positions and candidates", func(t *testing.T) { testDuplicates(t, setup(t)) })
	t.Run("manual start and end", func(t *testing.T) { testTransitions(t, setup(t)) })
	t.Run("removal refused once voted", func(t *testing.T) { testRemovalRestricted(t, setup(t)) })
	t.Run("list filters and orders", func(t *testing.T) { testList(t, setup(t)) })
	t.Run("summaries are idempotent", func(t *testing.T) { testSummaries(t, setup(t)) })
	t.Run("memberships", func(t *testing.T) { testMemberships(t, setup(t)) })
}

// BSON dates keep milliseconds only.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func seedOngoing(t *testing.T, r *repos) *domain.Election {
	t.Helper()
	ctx := context.Background()

	at := now()
	org := r.fixtures.CreateOrganization(ctx, uuid.New())
	return r.fixtures.CreateElection(ctx, org.ID, at.Add(-time.Hour), at.Add(time.Hour), domain.VisibilityPublic,
		testutil.PositionFixture{Title: "Chair", Candidates: []string{"Alice", "Bob"}},
		testutil.PositionFixture{Title: "Treasurer", Candidates: []string{"Carol", "Dan"}},
	)
}

func newVote(election *domain.Election, positionID, candidateID uuid.UUID, token string) *domain.Vote {
	return &domain.Vote{
		ID:          uuid.New(),
		ElectionID:  election.ID,
		PositionID:  positionID,
		CandidateID: candidateID,
		VoterToken:  domain.VoterToken(token),
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
}

func testDuplicateVote(t *testing.T, r *repos) {
	ctx := context.Background()
	election := seedOngoing(t, r)
	chair, alice := testutil.CandidateID(t, election, "Chair", "Alice")
	_, bob := testutil.CandidateID(t, election, "Chair", "Bob")
	treasurer, carol := testutil.CandidateID(t, election, "Treasurer", "Carol")

	require.NoError(t, r.votes.Insert(ctx, newVote(election, chair, alice, "v1.token")))

	err := r.votes.Insert(ctx, newVote(election, chair, bob, "v1.token"))
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	require.NoError(t, r.votes.Insert(ctx, newVote(election, treasurer, carol, "v1.token")))
	require.NoError(t, r.votes.Insert(ctx, newVote(election, chair, bob, "v1.other")))

	counts, err := r.votes.CountByPosition(ctx, chair)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int64{alice: 1, bob: 1}, counts)
}

func testConcurrentInsert(t *testing.T, r *repos) {
	ctx := context.Background()
	election := seedOngoing(t, r)
	chair, alice := testutil.CandidateID(t, election, "Chair", "Alice")

	const attempts = 50
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		duplicate atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.votes.Insert(ctx, newVote(election, chair, alice, "v1.same"))
			if err == nil {
				succeeded.Add(1)
			} else if errors.Is(err, domain.ErrAlreadyVoted) {
				duplicate.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(attempts-1), duplicate.Load())

	voters, err := r.votes.CountVoters(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), voters)
}

func testInsertBatchRollback(t *testing.T, r *repos) {
	ctx := context.Background()
	election := seedOngoing(t, r)
	chair, alice := testutil.CandidateID(t, election, "Chair", "Alice")
	treasurer, carol := testutil.CandidateID(t, election, "Treasurer", "Carol")

	require.NoError(t, r.votes.Insert(ctx, newVote(election, treasurer, carol, "v1.token")))

	err := r.votes.InsertBatch(ctx, []*domain.Vote{
		newVote(election, chair, alice, "v1.token"),
		newVote(election, treasurer, carol, "v1.token"),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	counts, err := r.votes.CountByPosition(ctx, chair)
	require.NoError(t, err)
	assert.Empty(t, counts, "first vote of a failed batch must not be kept")

	require.NoError(t, r.votes.InsertBatch(ctx, []*domain.Vote{
		newVote(election, chair, alice, "v1.fresh"),
		newVote(election, treasurer, carol, "v1.fresh"),
	}))
	voters, err := r.votes.CountVoters(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), voters)
}

func testCounts(t *testing.T, r *repos) {
	ctx := context.Background()
	election := seedOngoing(t, r)
	chair, alice := testutil.CandidateID(t, election, "Chair", "Alice")
	_, bob := testutil.CandidateID(t, election, "Chair", "Bob")
	treasurer, dan := testutil.CandidateID(t, election, "Treasurer", "Dan")

	voted, err := r.votes.HasVotes(ctx, election.ID)
	require.NoError(t, err)
	assert.False(t, voted)

	require.NoError(t, r.votes.Insert(ctx, newVote(election, chair, alice, "v1.a")))
	require.NoError(t, r.votes.Insert(ctx, newVote(election, chair, alice, "v1.b")))
	require.NoError(t, r.votes.Insert(ctx, newVote(election, chair, bob, "v1.c")))
	require.NoError(t, r.votes.Insert(ctx, newVote(election, treasurer, dan, "v1.a")))

	counts, err := r.votes.CountByElection(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int64{alice: 2, bob: 1, dan: 1}, counts)

	voters, err := r.votes.CountVoters(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), voters)

	voted, err = r.votes.HasVotes(ctx, election.ID)
	require.NoError(t, err)
	assert.True(t, voted)

	mine, err := r.votes.ListByVoter(ctx, election.ID, "v1.a")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.ElementsMatch(t, []uuid.UUID{chair, treasurer}, []uuid.UUID{mine[0].PositionID, mine[1].PositionID})

	none, err := r.votes.ListByVoter(ctx, election.ID, "v1.nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testElectionRoundTrip(t *testing.T, r *repos) {
	ctx := context.Background()
	election := seedOngoing(t, r)

	loaded, err := r.elections.GetByID(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOngoing, loaded.StatusAt(time.Now()))
	assert.Nil(t, loaded.OpenedAt)
	require.Len(t, loaded.Positions, 2)
	assert.Equal(t, "Chair", loaded.Positions[0].Title)
	assert.Equal(t, "Treasurer", loaded.Positions[1].Title)
	require.Len(t, loaded.Positions[0].Candidates, 2)
	assert.Equal(t, "Alice", loaded.Positions[0].Candidates[0].Name)

	position, err := r.elections.GetPosition(ctx, loaded.Positions[1].ID)
	require.NoError(t, err)
	assert.Equal(t, election.ID, position.ElectionID)

	userID := uuid.New()
	candidate := &domain.Candidate{
		ID:         uuid.New(),
		PositionID: position.ID,
		Name:       "Erin",
		UserID:     &userID,
		CreatedAt:  now(),
	}
	require.NoError(t, r.elections.AddCandidate(ctx, candidate))
	got, err := r.elections.GetCandidate(ctx, candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, position.ID, got.PositionID)
	require.NotNil(t, got.UserID)
	assert.Equal(t, userID, *got.UserID)

	_, err = r.elections.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)
	_, err = r.elections.GetPosition(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)
	_, err = r.elections.GetCandidate(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrCandidateNotFound)
}

func testDuplicates(t *testing.T, r *repos) {
	ctx := context.Background()
	election := seedOngoing(t, r)
	chair := election.Positions[0]

	err := r.elections.AddPosition(ctx, &domain.Position{
		ID:         uuid.New(),
		ElectionID: election.ID,
		Title:      "Chair",
		CreatedAt:  now(),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicatePosition)

	err = r.elections.AddCandidate(ctx, &domain.Candidate{
		ID:         uuid.New(),
		PositionID: chair.ID,
		Name:       "Alice",
		CreatedAt:  now(),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCandidate)

	err = r.elections.AddPosition(ctx, &domain.Position{
		ID:         uuid.New(),
		ElectionID: uuid.New(),
		Title:      "Orphan",
		CreatedAt:  now(),
	})
	assert.ErrorIs(t, err, domain.ErrElectionNotFound)

	err = r.elections.AddCandidate(ctx, &domain.Candidate{
		ID:         uuid.New(),
		PositionID: uuid.New(),
		Name:       "Nobody",
		CreatedAt:  now(),
	})
	assert.ErrorIs(t, err, domain.ErrPositionNotFound)
}

func testTransitions(t *testing.T, r *repos) {
	ctx := context.Background()
	at := now()
	org := r.fixtures.CreateOrganization(ctx, uuid.New())
	election := r.fixtures.CreateElection(ctx, org.ID, at.Add(time.Hour), at.Add(2*time.Hour), domain.VisibilityPublic)

	require.NoError(t, r.elections.MarkStarted(ctx, election.ID, at))
	assert.ErrorIs(t, r.elections.MarkStarted(ctx, election.ID, at.Add(time.Minute)), domain.ErrInvalidTransition)

	loaded, err := r.elections.GetByID(ctx, election.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.OpenedAt)
	assert.True(t, loaded.OpenedAt.Equal(at))
	assert.Equal(t, domain.StatusOngoing, loaded.StatusAt(at))

	closeAt := at.Add(10 * time.Minute)
	require.NoError(t, r.elections.MarkEnded(ctx, election.ID, closeAt))
	assert.ErrorIs(t, r.elections.MarkEnded(ctx, election.ID, closeAt.Add(time.Minute)), domain.ErrInvalidTransition)

	loaded, err = r.elections.GetByID(ctx, election.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, loaded.StatusAt(closeAt))

	assert.ErrorIs(t, r.elections.MarkStarted(ctx, uuid.New(), at), domain.ErrInvalidTransition)
}

func testRemovalRestricted(t *testing.T, r *repos) {
	ctx := context.Background()
	election := seedOngoing(t, r)
	chair, alice := testutil.CandidateID(t, election, "Chair", "Alice")
	_, bob := testutil.CandidateID(t, election, "Chair", "Bob")
	treasurer, _ := testutil.CandidateID(t, election, "Treasurer", "Carol")

	require.NoError(t, r.votes.Insert(ctx, newVote(election, chair, alice, "v1.token")))

	assert.ErrorIs(t, r.elections.RemoveCandidate(ctx, alice), domain.ErrElectionLocked)
	assert.ErrorIs(t, r.elections.RemovePosition(ctx, chair), domain.ErrElectionLocked)

	require.NoError(t, r.elections.RemoveCandidate(ctx, bob))
	require.NoError(t, r.elections.RemovePosition(ctx, treasurer))
	assert.ErrorIs(t, r.elections.RemovePosition(ctx, treasurer), domain.ErrPositionNotFound)
	assert.ErrorIs(t, r.elections.RemoveCandidate(ctx, bob), domain.ErrCandidateNotFound)

	loaded, err := r.elections.GetByID(ctx, election.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Positions, 1)
	assert.Len(t, loaded.Positions[0].Candidates, 1)
}

func testList(t *testing.T, r *repos) {
	ctx := context.Background()
	at := now()
	org := r.fixtures.CreateOrganization(ctx, uuid.New())

	scheduled := r.fixtures.CreateElection(ctx, org.ID, at.Add(time.Hour), at.Add(2*time.Hour), domain.VisibilityPublic)
	quiet := r.fixtures.CreateElection(ctx, org.ID, at.Add(-time.Hour), at.Add(time.Hour), domain.VisibilityPublic,
		testutil.PositionFixture{Title: "Chair", Candidates: []string{"Alice"}})
	busy := r.fixtures.CreateElection(ctx, org.ID, at.Add(-time.Hour), at.Add(time.Hour), domain.VisibilityPublic,
		testutil.PositionFixture{Title: "Chair", Candidates: []string{"Alice"}})
	completed := r.fixtures.CreateElection(ctx, org.ID, at.Add(-2*time.Hour), at.Add(-time.Hour), domain.VisibilityPublic)

	chair, alice := testutil.CandidateID(t, busy, "Chair", "Alice")
	require.NoError(t, r.votes.Insert(ctx, newVote(busy, chair, alice, "v1.token")))
	require.NoError(t, r.results.SummarizeVotes(ctx, busy.ID, at))
	require.NoError(t, r.results.SummarizeVotes(ctx, quiet.ID, at))

	ongoing := domain.StatusOngoing
	got, err := r.elections.List(ctx, ports.ElectionFilter{OrganizationID: &org.ID, Status: &ongoing, Now: at, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, busy.ID, got[0].ID, "most voted election comes first")
	assert.Equal(t, quiet.ID, got[1].ID)

	status := domain.StatusScheduled
	got, err = r.elections.List(ctx, ports.ElectionFilter{OrganizationID: &org.ID, Status: &status, Now: at, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, scheduled.ID, got[0].ID)

	status = domain.StatusCompleted
	got, err = r.elections.List(ctx, ports.ElectionFilter{OrganizationID: &org.ID, Status: &status, Now: at, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, completed.ID, got[0].ID)

	got, err = r.elections.List(ctx, ports.ElectionFilter{OrganizationID: &org.ID, Now: at, Limit: 3, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func testSummaries(t *testing.T, r *repos) {
	ctx := context.Background()
	election := seedOngoing(t, r)
	chair, alice := testutil.CandidateID(t, election, "Chair", "Alice")
	at := now()

	require.NoError(t, r.votes.Insert(ctx, newVote(election, chair, alice, "v1.a")))
	require.NoError(t, r.votes.Insert(ctx, newVote(election, chair, alice, "v1.b")))

	require.NoError(t, r.results.SummarizeVotes(ctx, election.ID, at))
	require.NoError(t, r.results.SummarizeVotes(ctx, election.ID, at.Add(time.Minute)))

	summaries, err := r.results.GetSummaries(ctx, election.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 4, "one document per candidate, zero-vote candidates included")

	byCandidate := make(map[uuid.UUID]domain.PositionSummary)
	for _, s := range summaries {
		byCandidate[s.CandidateID] = s
	}
	assert.Equal(t, int64(2), byCandidate[alice].VoteCount)
	assert.True(t, byCandidate[alice].RefreshedAt.Equal(at.Add(time.Minute)))

	require.NoError(t, r.elections.SaveStatus(ctx, election.ID, domain.StatusOngoing))
}

func testMemberships(t *testing.T, r *repos) {
	ctx := context.Background()
	owner := uuid.New()
	org := r.fixtures.CreateOrganization(ctx, owner)

	got, err := r.memberships.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, got.OwnerID)

	_, err = r.memberships.GetOrganization(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrOrganizationNotFound)

	member := uuid.New()
	membership, err := r.memberships.GetMembership(ctx, org.ID, member)
	require.NoError(t, err)
	assert.Nil(t, membership)

	r.fixtures.AddMember(ctx, org.ID, member, domain.MemberRoleVoter, domain.MembershipPending)
	r.fixtures.AddMember(ctx, org.ID, uuid.New(), domain.MemberRoleAdmin, domain.MembershipApproved)

	count, err := r.memberships.CountApproved(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	r.fixtures.AddMember(ctx, org.ID, member, domain.MemberRoleVoter, domain.MembershipApproved)
	membership, err = r.memberships.GetMembership(ctx, org.ID, member)
	require.NoError(t, err)
	require.NotNil(t, membership)
	assert.Equal(t, domain.MembershipApproved, membership.Status)

	count, err = r.memberships.CountApproved(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
