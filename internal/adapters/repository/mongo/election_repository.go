package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type electionRepository struct {
	elections *mongo.Collection
	votes     *mongo.Collection
}

func NewElectionRepository(store *Store) ports.ElectionRepository {
	return &electionRepository{
		elections: store.db.Collection(electionsCollection),
		votes:     store.db.Collection(votesCollection),
	}
}

func (r *electionRepository) Create(ctx context.Context, election *domain.Election) error {
	if _, err := r.elections.InsertOne(ctx, newElectionDoc(election)); err != nil {
		return unavailable("failed to insert election", err)
	}
	return nil
}

func (r *electionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	var doc electionDoc
	if err := r.elections.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrElectionNotFound
		}
		return nil, unavailable("failed to get election", err)
	}
	return doc.toDomain(), nil
}

func (r *electionRepository) GetAll(ctx context.Context) ([]*domain.Election, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.find(ctx, bson.M{}, opts)
}

func (r *electionRepository) List(ctx context.Context, filter ports.ElectionFilter) ([]*domain.Election, error) {
	var clauses []bson.M

	if filter.Status != nil {
		now := filter.Now
		completed := bson.M{"$or": bson.A{
			bson.M{"closed_at": bson.M{"$lte": now}},
			bson.M{"end_at": bson.M{"$lte": now}},
		}}
		notCompleted := bson.M{"$nor": bson.A{
			bson.M{"closed_at": bson.M{"$lte": now}},
			bson.M{"end_at": bson.M{"$lte": now}},
		}}
		started := bson.M{"$or": bson.A{
			bson.M{"start_at": bson.M{"$lte": now}},
			bson.M{"opened_at": bson.M{"$lte": now}},
		}}
		notStarted := bson.M{"$nor": bson.A{
			bson.M{"start_at": bson.M{"$lte": now}},
			bson.M{"opened_at": bson.M{"$lte": now}},
		}}

		switch *filter.Status {
		case domain.StatusCompleted:
			clauses = append(clauses, completed)
		case domain.StatusOngoing:
			clauses = append(clauses, notCompleted, started)
		case domain.StatusScheduled:
			clauses = append(clauses, notCompleted, notStarted)
		}
	}
	if filter.OrganizationID != nil {
		clauses = append(clauses, bson.M{"organization_id": filter.OrganizationID.String()})
	}

	query := bson.M{}
	if len(clauses) > 0 {
		query = bson.M{"$and": clauses}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "vote_total", Value: -1}, {Key: "created_at", Value: -1}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit)).
		SetProjection(bson.M{"positions": 0})

	return r.find(ctx, query, opts)
}

func (r *electionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Election, error) {
	cur, err := r.elections.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable("failed to find elections", err)
	}
	defer cur.Close(ctx)

	var elections []*domain.Election
	for cur.Next(ctx) {
		var doc electionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode election: %w", err)
		}
		elections = append(elections, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("error iterating elections", err)
	}
	return elections, nil
}

func (r *electionRepository) MarkStarted(ctx context.Context, id uuid.UUID, at time.Time) error {
	filter := bson.M{
		"_id": id.String(),
		"$and": bson.A{
			bson.M{"$or": bson.A{bson.M{"closed_at": nil}, bson.M{"closed_at": bson.M{"$gt": at}}}},
			bson.M{"$or": bson.A{bson.M{"opened_at": nil}, bson.M{"opened_at": bson.M{"$gt": at}}}},
		},
		"start_at": bson.M{"$gt": at},
	}
	return r.transition(ctx, filter, bson.M{"$set": bson.M{"opened_at": at}})
}

func (r *electionRepository) MarkEnded(ctx context.Context, id uuid.UUID, at time.Time) error {
	filter := bson.M{
		"_id": id.String(),
		"$or": bson.A{bson.M{"closed_at": nil}, bson.M{"closed_at": bson.M{"$gt": at}}},
		"end_at": bson.M{"$gt": at},
	}
	return r.transition(ctx, filter, bson.M{"$set": bson.M{"closed_at": at}})
}

func (r *electionRepository) transition(ctx context.Context, filter, update bson.M) error {
	res, err := r.elections.UpdateOne(ctx, filter, update)
	if err != nil {
		return unavailable("failed to update election", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *electionRepository) SaveStatus(ctx context.Context, id uuid.UUID, status domain.ElectionStatus) error {
	_, err := r.elections.UpdateOne(ctx,
		bson.M{"_id": id.String(), "status": bson.M{"$ne": string(status)}},
		bson.M{"$set": bson.M{"status": string(status)}},
	)
	if err != nil {
		return unavailable("failed to save election status", err)
	}
	return nil
}

// AddPosition pushes the position only if no position with the same title
// exists, in one conditional update.
func (r *electionRepository) AddPosition(ctx context.Context, position *domain.Position) error {
	res, err := r.elections.UpdateOne(ctx,
		bson.M{"_id": position.ElectionID.String(), "positions.title": bson.M{"$ne": position.Title}},
		bson.M{"$push": bson.M{"positions": newPositionDoc(position)}},
	)
	if err != nil {
		return unavailable("failed to insert position", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, position.ElectionID); err != nil {
			return err
		}
		return domain.ErrDuplicatePosition
	}
	return nil
}

func (r *electionRepository) GetPosition(ctx context.Context, id uuid.UUID) (*domain.Position, error) {
	election, err := r.findOne(ctx, bson.M{"positions._id": id.String()}, domain.ErrPositionNotFound)
	if err != nil {
		return nil, err
	}
	p, ok := election.Position(id)
	if !ok {
		return nil, domain.ErrPositionNotFound
	}
	return p, nil
}

func (r *electionRepository) RemovePosition(ctx context.Context, id uuid.UUID) error {
	if err := r.refuseIfVoted(ctx, bson.M{"position_id": id.String()}); err != nil {
		return err
	}

	res, err := r.elections.UpdateOne(ctx,
		bson.M{"positions._id": id.String()},
		bson.M{"$pull": bson.M{"positions": bson.M{"_id": id.String()}}},
	)
	if err != nil {
		return unavailable("failed to delete position", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}

func (r *electionRepository) AddCandidate(ctx context.Context, candidate *domain.Candidate) error {
	match := bson.M{
		"_id":             candidate.PositionID.String(),
		"candidates.name": bson.M{"$ne": candidate.Name},
	}
	if candidate.UserID != nil {
		match["candidates.user_id"] = bson.M{"$ne": candidate.UserID.String()}
	}

	res, err := r.elections.UpdateOne(ctx,
		bson.M{"positions": bson.M{"$elemMatch": match}},
		bson.M{"$push": bson.M{"positions.$.candidates": newCandidateDoc(candidate)}},
	)
	if err != nil {
		return unavailable("failed to insert candidate", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetPosition(ctx, candidate.PositionID); err != nil {
			return err
		}
		return domain.ErrDuplicateCandidate
	}
	return nil
}

func (r *electionRepository) GetCandidate(ctx context.Context, id uuid.UUID) (*domain.Candidate, error) {
	election, err := r.findOne(ctx, bson.M{"positions.candidates._id": id.String()}, domain.ErrCandidateNotFound)
	if err != nil {
		return nil, err
	}
	for _, p := range election.Positions {
		for _, c := range p.Candidates {
			if c.ID == id {
				return &c, nil
			}
		}
	}
	return nil, domain.ErrCandidateNotFound
}

func (r *electionRepository) RemoveCandidate(ctx context.Context, id uuid.UUID) error {
	if err := r.refuseIfVoted(ctx, bson.M{"candidate_id": id.String()}); err != nil {
		return err
	}

	res, err := r.elections.UpdateOne(ctx,
		bson.M{"positions.candidates._id": id.String()},
		bson.M{"$pull": bson.M{"positions.$.candidates": bson.M{"_id": id.String()}}},
	)
	if err != nil {
		return unavailable("failed to delete candidate", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrCandidateNotFound
	}
	return nil
}

// refuseIfVoted stands in for the relational ON DELETE RESTRICT.
func (r *electionRepository) refuseIfVoted(ctx context.Context, filter bson.M) error {
	n, err := r.votes.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return unavailable("failed to check existing votes", err)
	}
	if n > 0 {
		return domain.ErrElectionLocked
	}
	return nil
}

func (r *electionRepository) findOne(ctx context.Context, filter bson.M, notFound error) (*domain.Election, error) {
	var doc electionDoc
	if err := r.elections.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound
		}
		return nil, unavailable("failed to get election", err)
	}
	return doc.toDomain(), nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}
