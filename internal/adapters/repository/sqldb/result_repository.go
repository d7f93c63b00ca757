package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
)

type resultRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewResultRepository(store *Store) ports.ResultRepository {
	return &resultRepository{
		db:      store.db,
		dialect: store.dialect,
	}
}

// SummarizeVotes upserts one row per candidate of the election, zero-vote
// candidates included. Running it twice yields the same rows.
func (r *resultRepository) SummarizeVotes(ctx context.Context, electionID uuid.UUID, at time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO position_results (position_id, candidate_id, vote_count, refreshed_at)
		SELECT c.position_id, c.id, COUNT(v.id), %s
		FROM candidates c
		JOIN positions p ON p.id = c.position_id
		LEFT JOIN votes v ON v.candidate_id = c.id
		WHERE p.election_id = $1
		GROUP BY c.position_id, c.id
		ON CONFLICT (position_id, candidate_id) DO UPDATE
		SET vote_count = EXCLUDED.vote_count,
		    refreshed_at = EXCLUDED.refreshed_at
	`, r.dialect.timestamp("$2"))

	_, err := r.db.ExecContext(ctx, r.dialect.rebind(query), electionID, at)
	if err != nil {
		return unavailable(fmt.Sprintf("failed to summarize votes for election %s", electionID), err)
	}

	return nil
}

func (r *resultRepository) GetSummaries(ctx context.Context, electionID uuid.UUID) ([]domain.PositionSummary, error) {
	query := `
		SELECT pr.position_id, pr.candidate_id, pr.vote_count, pr.refreshed_at
		FROM position_results pr
		JOIN positions p ON p.id = pr.position_id
		WHERE p.election_id = $1
		ORDER BY p.order_index, pr.vote_count DESC
	`

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), electionID)
	if err != nil {
		return nil, unavailable("failed to fetch summaries", err)
	}
	defer rows.Close()

	var summaries []domain.PositionSummary
	for rows.Next() {
		var s domain.PositionSummary
		if err := rows.Scan(&s.PositionID, &s.CandidateID, &s.VoteCount, &s.RefreshedAt); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("error iterating summaries", err)
	}

	return summaries, nil
}
