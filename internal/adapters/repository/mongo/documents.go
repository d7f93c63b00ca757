package mongo

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
)

// Identifiers are stored as canonical uuid strings.

type organizationDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	OwnerID   string    `bson:"owner_id"`
	CreatedAt time.Time `bson:"created_at"`
}

type membershipDoc struct {
	OrganizationID string    `bson:"organization_id"`
	UserID         string    `bson:"user_id"`
	Role           string    `bson:"role"`
	Status         string    `bson:"status"`
	CreatedAt      time.Time `bson:"created_at"`
}

type electionDoc struct {
	ID               string        `bson:"_id"`
	OrganizationID   string        `bson:"organization_id"`
	Title            string        `bson:"title"`
	Description      string        `bson:"description"`
	StartAt          time.Time     `bson:"start_at"`
	EndAt            time.Time     `bson:"end_at"`
	ResultVisibility string        `bson:"result_visibility"`
	OpenedAt         *time.Time    `bson:"opened_at,omitempty"`
	ClosedAt         *time.Time    `bson:"closed_at,omitempty"`
	Status           string        `bson:"status"`
	VoteTotal        int64         `bson:"vote_total"`
	CreatedAt        time.Time     `bson:"created_at"`
	Positions        []positionDoc `bson:"positions"`
}

type positionDoc struct {
	ID          string         `bson:"_id"`
	Title       string         `bson:"title"`
	Description string         `bson:"description"`
	OrderIndex  int            `bson:"order_index"`
	CreatedAt   time.Time      `bson:"created_at"`
	Candidates  []candidateDoc `bson:"candidates"`
}

type candidateDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Manifesto string    `bson:"manifesto"`
	UserID    string    `bson:"user_id,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

type voteDoc struct {
	ID          string    `bson:"_id"`
	ElectionID  string    `bson:"election_id"`
	PositionID  string    `bson:"position_id"`
	CandidateID string    `bson:"candidate_id"`
	VoterToken  string    `bson:"voter_token"`
	CreatedAt   time.Time `bson:"created_at"`
}

type positionResultDoc struct {
	ID          string    `bson:"_id"`
	ElectionID  string    `bson:"election_id"`
	PositionID  string    `bson:"position_id"`
	CandidateID string    `bson:"candidate_id"`
	VoteCount   int64     `bson:"vote_count"`
	RefreshedAt time.Time `bson:"refreshed_at"`
}

func newElectionDoc(e *domain.Election) electionDoc {
	doc := electionDoc{
		ID:               e.ID.String(),
		OrganizationID:   e.OrganizationID.String(),
		Title:            e.Title,
		Description:      e.Description,
		StartAt:          e.StartAt,
		EndAt:            e.EndAt,
		ResultVisibility: string(e.ResultVisibility),
		OpenedAt:         e.OpenedAt,
		ClosedAt:         e.ClosedAt,
		Status:           string(e.StatusAt(e.CreatedAt)),
		CreatedAt:        e.CreatedAt,
		Positions:        []positionDoc{},
	}
	for i := range e.Positions {
		doc.Positions = append(doc.Positions, newPositionDoc(&e.Positions[i]))
	}
	return doc
}

func newPositionDoc(p *domain.Position) positionDoc {
	doc := positionDoc{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description,
		OrderIndex:  p.OrderIndex,
		CreatedAt:   p.CreatedAt,
		Candidates:  []candidateDoc{},
	}
	for i := range p.Candidates {
		doc.Candidates = append(doc.Candidates, newCandidateDoc(&p.Candidates[i]))
	}
	return doc
}

func newCandidateDoc(c *domain.Candidate) candidateDoc {
	doc := candidateDoc{
		ID:        c.ID.String(),
		Name:      c.Name,
		Manifesto: c.Manifesto,
		CreatedAt: c.CreatedAt,
	}
	if c.UserID != nil {
		doc.UserID = c.UserID.String()
	}
	return doc
}

func (d *electionDoc) toDomain() *domain.Election {
	e := &domain.Election{
		ID:               uuid.MustParse(d.ID),
		OrganizationID:   uuid.MustParse(d.OrganizationID),
		Title:            d.Title,
		Description:      d.Description,
		StartAt:          d.StartAt.UTC(),
		EndAt:            d.EndAt.UTC(),
		ResultVisibility: domain.ResultVisibility(d.ResultVisibility),
		OpenedAt:         utcPtr(d.OpenedAt),
		ClosedAt:         utcPtr(d.ClosedAt),
		CreatedAt:        d.CreatedAt.UTC(),
		Positions:        make([]domain.Position, 0, len(d.Positions)),
	}
	for i := range d.Positions {
		e.Positions = append(e.Positions, d.Positions[i].toDomain(e.ID))
	}
	sort.SliceStable(e.Positions, func(i, j int) bool {
		return e.Positions[i].OrderIndex < e.Positions[j].OrderIndex
	})
	return e
}

func (d *positionDoc) toDomain(electionID uuid.UUID) domain.Position {
	p := domain.Position{
		ID:          uuid.MustParse(d.ID),
		ElectionID:  electionID,
		Title:       d.Title,
		Description: d.Description,
		OrderIndex:  d.OrderIndex,
		CreatedAt:   d.CreatedAt.UTC(),
		Candidates:  []domain.Candidate{},
	}
	for _, c := range d.Candidates {
		p.Candidates = append(p.Candidates, c.toDomain(p.ID))
	}
	return p
}

func (d *candidateDoc) toDomain(positionID uuid.UUID) domain.Candidate {
	c := domain.Candidate{
		ID:         uuid.MustParse(d.ID),
		PositionID: positionID,
		Name:       d.Name,
		Manifesto:  d.Manifesto,
		CreatedAt:  d.CreatedAt.UTC(),
	}
	if d.UserID != "" {
		if id, err := uuid.Parse(d.UserID); err == nil {
			c.UserID = &id
		}
	}
	return c
}

func (d *voteDoc) toDomain() domain.Vote {
	return domain.Vote{
		ID:          uuid.MustParse(d.ID),
		ElectionID:  uuid.MustParse(d.ElectionID),
		PositionID:  uuid.MustParse(d.PositionID),
		CandidateID: uuid.MustParse(d.CandidateID),
		VoterToken:  domain.VoterToken(d.VoterToken),
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
