// Package repository opens the store selected by configuration and builds
// its repositories.
package repository

import (
	"context"
	"fmt"

	"github.com/vncsmyrnk/pollr/internal/adapters/repository/mongo"
	"github.com/vncsmyrnk/pollr/internal/adapters/repository/sqldb"
	"github.com/vncsmyrnk/pollr/internal/config"
	"github.com/vncsmyrnk/pollr/internal/core/ports"
	"go.uber.org/zap"
)

type Repositories struct {
	Elections   ports.ElectionRepository
	Votes       ports.VoteRepository
	Memberships ports.MembershipRepository
	Results     ports.ResultRepository

	close func(ctx context.Context) error
}

func (r *Repositories) Close(ctx context.Context) error {
	return r.close(ctx)
}

// Open connects to the configured store. SQLite databases are migrated on
// open and Mongo indexes are ensured; postgres schemas are managed by
// cmd/migrations.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Repositories, error) {
	if cfg.DBDriver == "mongo" {
		store, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, fmt.Errorf("failed to ensure mongo indexes: %w", err)
		}
		return &Repositories{
			Elections:   mongo.NewElectionRepository(store),
			Votes:       mongo.NewVoteRepository(store),
			Memberships: mongo.NewMembershipRepository(store),
			Results:     mongo.NewResultRepository(store),
			close:       store.Close,
		}, nil
	}

	dialect, err := sqldb.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	store, err := sqldb.Open(ctx, dialect, cfg.SQLDSN())
	if err != nil {
		return nil, err
	}
	if dialect == sqldb.SQLite {
		applied, err := store.Migrate(ctx)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if len(applied) > 0 {
			log.Info("applied migrations", zap.Strings("migrations", applied))
		}
	}

	return &Repositories{
		Elections:   sqldb.NewElectionRepository(store),
		Votes:       sqldb.NewVoteRepository(store),
		Memberships: sqldb.NewMembershipRepository(store),
		Results:     sqldb.NewResultRepository(store),
		close:       func(context.Context) error { return store.Close() },
	}, nil
}
