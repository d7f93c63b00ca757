package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/pollr/internal/adapters/repository/sqldb"
	"github.com/vncsmyrnk/pollr/internal/adapters/votertoken"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"github.com/vncsmyrnk/pollr/internal/testutil"
	"go.uber.org/zap"
)

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	served   map[bool]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{outcomes: map[string]int{}, served: map[bool]int{}}
}

func (m *recordingMetrics) VoteCast(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *recordingMetrics) TallyServed(cached bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.served[cached]++
}

func (m *recordingMetrics) count(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[outcome]
}

// testApp wires the services over a private SQLite store and a manual
// clock.
type testApp struct {
	Clock       *testclock.Clock
	Elections   ports.ElectionRepository
	Votes       ports.VoteRepository
	Memberships ports.MembershipRepository
	Results     ports.ResultRepository
	Fixtures    *testutil.Fixtures
	Tokens      ports.VoterTokenDeriver
	Metrics     *recordingMetrics

	ElectionService ports.ElectionService
	VoteService     ports.VoteService
	TallyService    ports.TallyService
	SummaryService  ports.SummaryService
}

func setupTestApp(t *testing.T, cacheTTL time.Duration) *testApp {
	t.Helper()

	store := testutil.SQLiteStore(t)
	clk := testclock.NewClock(time.Now().UTC().Truncate(time.Second))
	log := zap.NewNop()

	tokens, err := votertoken.New("0123456789abcdef0123456789abcdef", "k1")
	require.NoError(t, err)

	app := &testApp{
		Clock:       clk,
		Elections:   sqldb.NewElectionRepository(store),
		Votes:       sqldb.NewVoteRepository(store),
		Memberships: sqldb.NewMembershipRepository(store),
		Results:     sqldb.NewResultRepository(store),
		Tokens:      tokens,
		Metrics:     newRecordingMetrics(),
	}
	app.Fixtures = testutil.NewFixtures(t, app.Elections, app.Memberships)

	cache := NewTallyCache(cacheTTL, clk)
	eligibility := NewEligibilityService(app.Elections, app.Memberships, tokens, clk)

	app.ElectionService = NewElectionService(app.Elections, app.Memberships, app.Votes, clk, log)
	app.VoteService = NewVoteService(VoteServiceDeps{
		ElectionRepo: app.Elections,
		VoteRepo:     app.Votes,
		Eligibility:  eligibility,
		Validator:    NewBallotValidator(app.Elections, clk),
		Tokens:       tokens,
		Cache:        cache,
		Metrics:      app.Metrics,
		Clock:        clk,
		Log:          log,
	})
	app.TallyService = NewTallyService(TallyServiceDeps{
		ElectionRepo:   app.Elections,
		VoteRepo:       app.Votes,
		MembershipRepo: app.Memberships,
		Eligibility:    eligibility,
		Cache:          cache,
		Metrics:        app.Metrics,
		Clock:          clk,
		Log:            log,
	})
	app.SummaryService = NewSummaryService(app.Elections, app.Results, clk, log)
	return app
}

func (a *testApp) Now() time.Time {
	return a.Clock.Now()
}

// organization seeds an organization owned by owner with the given
// approved voters.
func (a *testApp) organization(t *testing.T, owner uuid.UUID, voters ...uuid.UUID) *domain.Organization {
	t.Helper()
	ctx := context.Background()

	org := a.Fixtures.CreateOrganization(ctx, owner)
	for _, v := range voters {
		a.Fixtures.AddMember(ctx, org.ID, v, domain.MemberRoleVoter, domain.MembershipApproved)
	}
	return org
}

// ongoingElection seeds a Chair race between Alice and Bob that opened an
// hour ago and closes in an hour.
func (a *testApp) ongoingElection(t *testing.T, orgID uuid.UUID, visibility domain.ResultVisibility) *domain.Election {
	t.Helper()
	return a.Fixtures.CreateElection(context.Background(), orgID,
		a.Now().Add(-time.Hour), a.Now().Add(time.Hour), visibility,
		testutil.PositionFixture{Title: "Chair", Candidates: []string{"Alice", "Bob"}},
		testutil.PositionFixture{Title: "Treasurer", Candidates: []string{"Carol", "Dan"}},
	)
}
