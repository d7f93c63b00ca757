package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type voteRepository struct {
	client *mongo.Client
	votes  *mongo.Collection
}

func NewVoteRepository(store *Store) ports.VoteRepository {
	return &voteRepository{
		client: store.client,
		votes:  store.db.Collection(votesCollection),
	}
}

func newVoteDoc(v *domain.Vote) voteDoc {
	return voteDoc{
		ID:          v.ID.String(),
		ElectionID:  v.ElectionID.String(),
		PositionID:  v.PositionID.String(),
		CandidateID: v.CandidateID.String(),
		VoterToken:  string(v.VoterToken),
		CreatedAt:   v.CreatedAt,
	}
}

// Insert relies on the unique {voter_token, position_id} index.
func (r *voteRepository) Insert(ctx context.Context, vote *domain.Vote) error {
	if _, err := r.votes.InsertOne(ctx, newVoteDoc(vote)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyVoted
		}
		return unavailable("failed to save vote", err)
	}
	return nil
}

func (r *voteRepository) InsertBatch(ctx context.Context, votes []*domain.Vote) error {
	docs := make([]interface{}, 0, len(votes))
	for _, v := range votes {
		docs = append(docs, newVoteDoc(v))
	}

	sess, err := r.client.StartSession()
	if err != nil {
		return unavailable("failed to start session", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return r.votes.InsertMany(sc, docs)
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyVoted
		}
		return unavailable("failed to save ballot", err)
	}
	return nil
}

func (r *voteRepository) ListByVoter(ctx context.Context, electionID uuid.UUID, token domain.VoterToken) ([]domain.Vote, error) {
	filter := bson.M{"election_id": electionID.String(), "voter_token": string(token)}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cur, err := r.votes.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable("failed to list votes", err)
	}
	defer cur.Close(ctx)

	var votes []domain.Vote
	for cur.Next(ctx) {
		var doc voteDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode vote: %w", err)
		}
		votes = append(votes, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("failed to iterate votes", err)
	}
	return votes, nil
}

func (r *voteRepository) CountByPosition(ctx context.Context, positionID uuid.UUID) (map[uuid.UUID]int64, error) {
	return r.counts(ctx, bson.M{"position_id": positionID.String()})
}

func (r *voteRepository) CountByElection(ctx context.Context, electionID uuid.UUID) (map[uuid.UUID]int64, error) {
	return r.counts(ctx, bson.M{"election_id": electionID.String()})
}

func (r *voteRepository) counts(ctx context.Context, match bson.M) (map[uuid.UUID]int64, error) {
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": "$candidate_id", "count": bson.M{"$sum": 1}}},
	}

	cur, err := r.votes.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, unavailable("failed to count votes", err)
	}
	defer cur.Close(ctx)

	counts := make(map[uuid.UUID]int64)
	for cur.Next(ctx) {
		var result struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode count: %w", err)
		}
		id, err := uuid.Parse(result.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid candidate id %q: %w", result.ID, err)
		}
		counts[id] = result.Count
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("failed to iterate counts", err)
	}
	return counts, nil
}

func (r *voteRepository) CountVoters(ctx context.Context, electionID uuid.UUID) (int64, error) {
	tokens, err := r.votes.Distinct(ctx, "voter_token", bson.M{"election_id": electionID.String()})
	if err != nil {
		return 0, unavailable("failed to count voters", err)
	}
	return int64(len(tokens)), nil
}

func (r *voteRepository) HasVotes(ctx context.Context, electionID uuid.UUID) (bool, error) {
	err := r.votes.FindOne(ctx, bson.M{"election_id": electionID.String()}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, unavailable("failed to check existing votes", err)
	}
	return true, nil
}
