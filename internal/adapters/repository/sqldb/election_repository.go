package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
)

type electionRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewElectionRepository(store *Store) ports.ElectionRepository {
	return &electionRepository{
		db:      store.db,
		dialect: store.dialect,
	}
}

const electionColumns = `e.id, e.organization_id, e.title, e.description, e.start_at, e.end_at,
		e.result_visibility, e.opened_at, e.closed_at, e.created_at`

func (r *electionRepository) Create(ctx context.Context, election *domain.Election) error {
	query := `
		INSERT INTO elections (id, organization_id, title, description, start_at, end_at, result_visibility, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(query),
		election.ID, election.OrganizationID, election.Title, election.Description,
		election.StartAt, election.EndAt, election.ResultVisibility,
		election.StatusAt(election.CreatedAt), election.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrOrganizationNotFound
		}
		return unavailable("failed to insert election", err)
	}
	return nil
}

func (r *electionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections e WHERE e.id = $1`

	election, err := scanElection(r.db.QueryRowContext(ctx, r.dialect.rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrElectionNotFound
		}
		return nil, unavailable("failed to get election", err)
	}

	positions, err := r.fetchPositions(ctx, election.ID)
	if err != nil {
		return nil, err
	}
	election.Positions = positions

	return election, nil
}

func (r *electionRepository) GetAll(ctx context.Context) ([]*domain.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections e ORDER BY e.created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable("failed to get all elections", err)
	}
	defer rows.Close()

	return scanElections(rows)
}

// List filters on the status derived from timestamps at filter.Now, so the
// materialized status column is never consulted. Elections with the most
// summarized votes come first.
func (r *electionRepository) List(ctx context.Context, filter ports.ElectionFilter) ([]*domain.Election, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != nil {
		now := arg(filter.Now)
		completed := fmt.Sprintf(`((e.closed_at IS NOT NULL AND e.closed_at <= %[1]s) OR e.end_at <= %[1]s)`, now)
		started := fmt.Sprintf(`(e.start_at <= %[1]s OR (e.opened_at IS NOT NULL AND e.opened_at <= %[1]s))`, now)

		switch *filter.Status {
		case domain.StatusCompleted:
			conditions = append(conditions, completed)
		case domain.StatusOngoing:
			conditions = append(conditions, "NOT "+completed, started)
		case domain.StatusScheduled:
			conditions = append(conditions, "NOT "+completed, "NOT "+started)
		}
	}
	if filter.OrganizationID != nil {
		conditions = append(conditions, "e.organization_id = "+arg(*filter.OrganizationID))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM elections e
		LEFT JOIN (
			SELECT p.election_id, SUM(pr.vote_count) AS total
			FROM position_results pr
			JOIN positions p ON p.id = pr.position_id
			GROUP BY p.election_id
		) t ON t.election_id = e.id
		%s
		ORDER BY COALESCE(t.total, 0) DESC, e.created_at DESC
		LIMIT %s OFFSET %s
	`, electionColumns, where, arg(filter.Limit), arg(filter.Offset))

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, unavailable("failed to list elections", err)
	}
	defer rows.Close()

	return scanElections(rows)
}

func (r *electionRepository) MarkStarted(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE elections SET opened_at = $2
		WHERE id = $1
		  AND (closed_at IS NULL OR closed_at > $2)
		  AND (opened_at IS NULL OR opened_at > $2)
		  AND start_at > $2
	`
	return r.transition(ctx, query, id, at)
}

func (r *electionRepository) MarkEnded(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE elections SET closed_at = $2
		WHERE id = $1
		  AND (closed_at IS NULL OR closed_at > $2)
		  AND end_at > $2
	`
	return r.transition(ctx, query, id, at)
}

func (r *electionRepository) transition(ctx context.Context, query string, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(query), id, at)
	if err != nil {
		return unavailable("failed to update election", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("failed to update election", err)
	}
	if n == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *electionRepository) SaveStatus(ctx context.Context, id uuid.UUID, status domain.ElectionStatus) error {
	query := `UPDATE elections SET status = $2 WHERE id = $1 AND status <> $2`
	if _, err := r.db.ExecContext(ctx, r.dialect.rebind(query), id, status); err != nil {
		return unavailable("failed to save election status", err)
	}
	return nil
}

func (r *electionRepository) AddPosition(ctx context.Context, position *domain.Position) error {
	query := `
		INSERT INTO positions (id, election_id, title, description, order_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(query),
		position.ID, position.ElectionID, position.Title, position.Description, position.OrderIndex, position.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicatePosition
		}
		if isForeignKeyViolation(err) {
			return domain.ErrElectionNotFound
		}
		return unavailable("failed to insert position", err)
	}
	return nil
}

func (r *electionRepository) GetPosition(ctx context.Context, id uuid.UUID) (*domain.Position, error) {
	query := `
		SELECT id, election_id, title, description, order_index, created_at
		FROM positions
		WHERE id = $1
	`
	var p domain.Position
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(query), id).Scan(
		&p.ID, &p.ElectionID, &p.Title, &p.Description, &p.OrderIndex, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, unavailable("failed to get position", err)
	}

	candidatesQuery := `
		SELECT id, position_id, name, manifesto, user_id, created_at
		FROM candidates
		WHERE position_id = $1
		ORDER BY created_at, name
	`
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(candidatesQuery), id)
	if err != nil {
		return nil, unavailable("failed to get candidates", err)
	}
	defer rows.Close()

	candidates, err := scanCandidates(rows)
	if err != nil {
		return nil, err
	}
	p.Candidates = candidates

	return &p, nil
}

func (r *electionRepository) RemovePosition(ctx context.Context, id uuid.UUID) error {
	return r.remove(ctx, `DELETE FROM positions WHERE id = $1`, id, domain.ErrPositionNotFound)
}

func (r *electionRepository) AddCandidate(ctx context.Context, candidate *domain.Candidate) error {
	query := `
		INSERT INTO candidates (id, position_id, name, manifesto, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	userID := uuid.NullUUID{}
	if candidate.UserID != nil {
		userID = uuid.NullUUID{UUID: *candidate.UserID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, r.dialect.rebind(query),
		candidate.ID, candidate.PositionID, candidate.Name, candidate.Manifesto, userID, candidate.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateCandidate
		}
		if isForeignKeyViolation(err) {
			return domain.ErrPositionNotFound
		}
		return unavailable("failed to insert candidate", err)
	}
	return nil
}

func (r *electionRepository) GetCandidate(ctx context.Context, id uuid.UUID) (*domain.Candidate, error) {
	query := `
		SELECT id, position_id, name, manifesto, user_id, created_at
		FROM candidates
		WHERE id = $1
	`
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), id)
	if err != nil {
		return nil, unavailable("failed to get candidate", err)
	}
	defer rows.Close()

	candidates, err := scanCandidates(rows)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, domain.ErrCandidateNotFound
	}
	return &candidates[0], nil
}

func (r *electionRepository) RemoveCandidate(ctx context.Context, id uuid.UUID) error {
	return r.remove(ctx, `DELETE FROM candidates WHERE id = $1`, id, domain.ErrCandidateNotFound)
}

// remove relies on the votes foreign keys (ON DELETE RESTRICT) as the last
// line against orphaning a counted vote.
func (r *electionRepository) remove(ctx context.Context, query string, id uuid.UUID, notFound error) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(query), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrElectionLocked
		}
		return unavailable("failed to delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("failed to delete", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (r *electionRepository) fetchPositions(ctx context.Context, electionID uuid.UUID) ([]domain.Position, error) {
	query := `
		SELECT id, election_id, title, description, order_index, created_at
		FROM positions
		WHERE election_id = $1
		ORDER BY order_index, created_at
	`
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), electionID)
	if err != nil {
		return nil, unavailable("failed to fetch positions", err)
	}

	var positions []domain.Position
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.ID, &p.ElectionID, &p.Title, &p.Description, &p.OrderIndex, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p.Candidates = []domain.Candidate{}
		index[p.ID] = len(positions)
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, unavailable("failed to iterate positions", err)
	}
	rows.Close()

	if len(positions) == 0 {
		return positions, nil
	}

	candidatesQuery := `
		SELECT c.id, c.position_id, c.name, c.manifesto, c.user_id, c.created_at
		FROM candidates c
		JOIN positions p ON p.id = c.position_id
		WHERE p.election_id = $1
		ORDER BY c.created_at, c.name
	`
	crows, err := r.db.QueryContext(ctx, r.dialect.rebind(candidatesQuery), electionID)
	if err != nil {
		return nil, unavailable("failed to fetch candidates", err)
	}
	defer crows.Close()

	candidates, err := scanCandidates(crows)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		i, ok := index[c.PositionID]
		if !ok {
			continue
		}
		positions[i].Candidates = append(positions[i].Candidates, c)
	}

	return positions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElection(row rowScanner) (*domain.Election, error) {
	var e domain.Election
	err := row.Scan(
		&e.ID, &e.OrganizationID, &e.Title, &e.Description, &e.StartAt, &e.EndAt,
		&e.ResultVisibility, &e.OpenedAt, &e.ClosedAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanElections(rows *sql.Rows) ([]*domain.Election, error) {
	var elections []*domain.Election
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("error iterating elections", err)
	}
	return elections, nil
}

func scanCandidates(rows *sql.Rows) ([]domain.Candidate, error) {
	var candidates []domain.Candidate
	for rows.Next() {
		var (
			c      domain.Candidate
			userID uuid.NullUUID
		)
		if err := rows.Scan(&c.ID, &c.PositionID, &c.Name, &c.Manifesto, &userID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if userID.Valid {
			id := userID.UUID
			c.UserID = &id
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to iterate candidates", err)
	}
	return candidates, nil
}
