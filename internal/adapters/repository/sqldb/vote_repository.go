package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
)

type voteRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewVoteRepository(store *Store) ports.VoteRepository {
	return &voteRepository{
		db:      store.db,
		dialect: store.dialect,
	}
}

const insertVoteQuery = `
	INSERT INTO votes (id, election_id, position_id, candidate_id, voter_token, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// Insert never reads before writing. The unique constraint on
// (voter_token, position_id) decides which of several concurrent casts wins.
func (r *voteRepository) Insert(ctx context.Context, vote *domain.Vote) error {
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(insertVoteQuery),
		vote.ID, vote.ElectionID, vote.PositionID, vote.CandidateID, string(vote.VoterToken), vote.CreatedAt,
	)
	if err != nil {
		return classifyInsertError(err)
	}
	return nil
}

func (r *voteRepository) InsertBatch(ctx context.Context, votes []*domain.Vote) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.dialect.rebind(insertVoteQuery))
	if err != nil {
		return unavailable("failed to prepare vote statement", err)
	}
	defer stmt.Close()

	for _, vote := range votes {
		_, err := stmt.ExecContext(ctx,
			vote.ID, vote.ElectionID, vote.PositionID, vote.CandidateID, string(vote.VoterToken), vote.CreatedAt,
		)
		if err != nil {
			return classifyInsertError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classifyInsertError(err)
	}
	return nil
}

func classifyInsertError(err error) error {
	switch {
	case isUniqueViolation(err):
		return domain.ErrAlreadyVoted
	case isForeignKeyViolation(err):
		return domain.ErrInvalidBallot
	default:
		return unavailable("failed to save vote", err)
	}
}

func (r *voteRepository) ListByVoter(ctx context.Context, electionID uuid.UUID, token domain.VoterToken) ([]domain.Vote, error) {
	query := `
		SELECT v.id, v.election_id, v.position_id, v.candidate_id, v.created_at
		FROM votes v
		JOIN positions p ON p.id = v.position_id
		WHERE v.election_id = $1 AND v.voter_token = $2
		ORDER BY p.order_index, v.created_at
	`
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), electionID, string(token))
	if err != nil {
		return nil, unavailable("failed to list votes", err)
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		v := domain.Vote{VoterToken: token}
		if err := rows.Scan(&v.ID, &v.ElectionID, &v.PositionID, &v.CandidateID, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to iterate votes", err)
	}
	return votes, nil
}

func (r *voteRepository) CountByPosition(ctx context.Context, positionID uuid.UUID) (map[uuid.UUID]int64, error) {
	query := `
		SELECT candidate_id, COUNT(*)
		FROM votes
		WHERE position_id = $1
		GROUP BY candidate_id
	`
	return r.counts(ctx, query, positionID)
}

func (r *voteRepository) CountByElection(ctx context.Context, electionID uuid.UUID) (map[uuid.UUID]int64, error) {
	query := `
		SELECT candidate_id, COUNT(*)
		FROM votes
		WHERE election_id = $1
		GROUP BY candidate_id
	`
	return r.counts(ctx, query, electionID)
}

func (r *voteRepository) counts(ctx context.Context, query string, id uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), id)
	if err != nil {
		return nil, unavailable("failed to count votes", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var (
			candidateID uuid.UUID
			count       int64
		)
		if err := rows.Scan(&candidateID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[candidateID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to iterate counts", err)
	}
	return counts, nil
}

func (r *voteRepository) CountVoters(ctx context.Context, electionID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(DISTINCT voter_token) FROM votes WHERE election_id = $1`

	var count int64
	if err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), electionID).Scan(&count); err != nil {
		return 0, unavailable("failed to count voters", err)
	}
	return count, nil
}

func (r *voteRepository) HasVotes(ctx context.Context, electionID uuid.UUID) (bool, error) {
	query := `SELECT 1 FROM votes WHERE election_id = $1 LIMIT 1`

	var exists int
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), electionID).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, unavailable("failed to check existing votes", err)
	}
	return true, nil
}
