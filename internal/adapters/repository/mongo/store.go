package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	organizationsCollection   = "organizations"
	membershipsCollection     = "memberships"
	electionsCollection       = "elections"
	votesCollection           = "votes"
	positionResultsCollection = "position_results"
)

// Store wraps the client and database every repository of this package
// shares. Ballot batches need a replica set for multi-document
// transactions.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewStore(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return NewStore(client, database), nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Database() *mongo.Database {
	return s.db
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// votes index is the duplicate guard.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	groups := map[string][]mongo.IndexModel{
		votesCollection: {
			{
				Keys:    bson.D{{Key: "voter_token", Value: 1}, {Key: "position_id", Value: 1}},
				Options: options.Index().SetName("uniq_votes_voter_position").SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "position_id", Value: 1}, {Key: "candidate_id", Value: 1}},
				Options: options.Index().SetName("idx_votes_position_candidate"),
			},
			{
				Keys:    bson.D{{Key: "election_id", Value: 1}},
				Options: options.Index().SetName("idx_votes_election"),
			},
		},
		membershipsCollection: {
			{
				Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetName("uniq_memberships_org_user").SetUnique(true),
			},
		},
		electionsCollection: {
			{
				Keys:    bson.D{{Key: "organization_id", Value: 1}},
				Options: options.Index().SetName("idx_elections_organization"),
			},
			{
				Keys:    bson.D{{Key: "positions._id", Value: 1}},
				Options: options.Index().SetName("idx_elections_positions"),
			},
			{
				Keys:    bson.D{{Key: "positions.candidates._id", Value: 1}},
				Options: options.Index().SetName("idx_elections_candidates"),
			},
		},
		positionResultsCollection: {
			{
				Keys:    bson.D{{Key: "election_id", Value: 1}},
				Options: options.Index().SetName("idx_position_results_election"),
			},
		},
	}

	for name, indexes := range groups {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}
