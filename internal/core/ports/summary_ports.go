package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
)

type ResultRepository interface {
	SummarizeVotes(ctx context.Context, electionID uuid.UUID, at time.Time) error
	GetSummaries(ctx context.Context, electionID uuid.UUID) ([]domain.PositionSummary, error)
}

type SummaryService interface {
	Refresh(ctx context.Context) error
}
