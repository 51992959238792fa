package memory

import (
	"context"
	"time"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
)

var _ repo_interfaces.ActorRepository = (*ActorRepository)(nil)

type ActorRepository struct {
	store *Store
}

func NewActorRepository(store *Store) *ActorRepository {
	return &ActorRepository{store: store}
}

func (r *ActorRepository) Create(ctx context.Context, actor domain.Actor) (domain.Actor, error) {
	_ = ctx

	actor.CreatedAt = time.Now().UTC()

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.actors[actor.ID]; exists {
		return domain.Actor{}, domain.ErrConcurrencyConflict
	}
	s.actors[actor.ID] = actor

	return actor, nil
}

func (r *ActorRepository) Get(ctx context.Context, id string) (domain.Actor, error) {
	_ = ctx

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	actor, ok := s.actors[id]
	if !ok {
		return domain.Actor{}, domain.ErrRecordNotFound
	}
	return actor, nil
}
