package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
)

type TallyService interface {
	GetTally(ctx context.Context, positionID uuid.UUID, role domain.Role) (*domain.Tally, error)
	GetTallyAs(ctx context.Context, requester domain.Requester, positionID uuid.UUID) (*domain.Tally, error)
	GetElectionResults(ctx context.Context, electionID uuid.UUID, role domain.Role) (*domain.ElectionResults, error)
	GetElectionResultsAs(ctx context.Context, requester domain.Requester, electionID uuid.UUID) (*domain.ElectionResults, error)
}

// TallyCache is a read-through cache of per-position counts. It is never
// the system of record.
type TallyCache interface {
	Get(ctx context.Context, positionID uuid.UUID, load func(ctx context.Context) (map[uuid.UUID]int64, error)) (map[uuid.UUID]int64, bool, error)
	// BeginWrite marks positions as being written. Until the returned func
	// runs, reads of them go to the store and nothing is cached for them.
	// The func drops their cached entries.
	BeginWrite(positionIDs ...uuid.UUID) (done func())
}
