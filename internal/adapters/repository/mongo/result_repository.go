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

type resultRepository struct {
	elections *mongo.Collection
	results   *mongo.Collection
	votes     *voteRepository
}

func NewResultRepository(store *Store) ports.ResultRepository {
	return &resultRepository{
		elections: store.db.Collection(electionsCollection),
		results:   store.db.Collection(positionResultsCollection),
		votes:     NewVoteRepository(store).(*voteRepository),
	}
}

// SummarizeVotes upserts one result document per candidate and stores the
// election total used to order listings.
func (r *resultRepository) SummarizeVotes(ctx context.Context, electionID uuid.UUID, at time.Time) error {
	var doc electionDoc
	if err := r.elections.FindOne(ctx, bson.M{"_id": electionID.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrElectionNotFound
		}
		return unavailable(fmt.Sprintf("failed to load election %s", electionID), err)
	}

	counts, err := r.votes.CountByElection(ctx, electionID)
	if err != nil {
		return fmt.Errorf("failed to count votes for election %s: %w", electionID, err)
	}

	var (
		models []mongo.WriteModel
		total  int64
	)
	for _, p := range doc.Positions {
		for _, c := range p.Candidates {
			candidateID, err := uuid.Parse(c.ID)
			if err != nil {
				return fmt.Errorf("invalid candidate id %q: %w", c.ID, err)
			}
			count := counts[candidateID]
			total += count

			res := positionResultDoc{
				ID:          p.ID + ":" + c.ID,
				ElectionID:  doc.ID,
				PositionID:  p.ID,
				CandidateID: c.ID,
				VoteCount:   count,
				RefreshedAt: at,
			}
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"_id": res.ID}).
				SetReplacement(res).
				SetUpsert(true))
		}
	}

	if len(models) > 0 {
		if _, err := r.results.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			return unavailable(fmt.Sprintf("failed to summarize votes for election %s", electionID), err)
		}
	}

	_, err = r.elections.UpdateOne(ctx,
		bson.M{"_id": doc.ID},
		bson.M{"$set": bson.M{"vote_total": total}},
	)
	if err != nil {
		return unavailable(fmt.Sprintf("failed to store vote total for election %s", electionID), err)
	}
	return nil
}

func (r *resultRepository) GetSummaries(ctx context.Context, electionID uuid.UUID) ([]domain.PositionSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position_id", Value: 1}, {Key: "vote_count", Value: -1}})
	cur, err := r.results.Find(ctx, bson.M{"election_id": electionID.String()}, opts)
	if err != nil {
		return nil, unavailable("failed to fetch summaries", err)
	}
	defer cur.Close(ctx)

	var summaries []domain.PositionSummary
	for cur.Next(ctx) {
		var doc positionResultDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode summary: %w", err)
		}
		summaries = append(summaries, domain.PositionSummary{
			PositionID:  uuid.MustParse(doc.PositionID),
			CandidateID: uuid.MustParse(doc.CandidateID),
			VoteCount:   doc.VoteCount,
			RefreshedAt: doc.RefreshedAt.UTC(),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("error iterating summaries", err)
	}
	return summaries, nil
}
