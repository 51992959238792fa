package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
)

var _ repo_interfaces.ActorRepository = (*ActorRepository)(nil)

type ActorRepository struct {
	db *sql.DB
}

func NewActorRepository(db *sql.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

func (r *ActorRepository) Create(ctx context.Context, actor domain.Actor) (domain.Actor, error) {
	const query = `
INSERT INTO actors (id, name, role, secret_hash)
VALUES ($1, $2, $3, $4)
RETURNING created_at`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		actor.ID,
		actor.Name,
		actor.Role,
		actor.SecretHash,
	).Scan(&actor.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.Actor{}, domain.ErrConcurrencyConflict
		}
		return domain.Actor{}, fmt.Errorf("create actor: %w", err)
	}

	return actor, nil
}

func (r *ActorRepository) Get(ctx context.Context, id string) (domain.Actor, error) {
	const query = `
SELECT id, name, role, secret_hash, created_at
FROM actors
WHERE id = $1`

	var actor domain.Actor
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&actor.ID,
		&actor.Name,
		&actor.Role,
		&actor.SecretHash,
		&actor.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Actor{}, domain.ErrRecordNotFound
		}
		return domain.Actor{}, fmt.Errorf("get actor: %w", err)
	}

	return actor, nil
}
