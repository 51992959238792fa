package repo_interfaces

import (
	"context"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
)

type ActorRepository interface {
	Create(ctx context.Context, actor domain.Actor) (domain.Actor, error)
	Get(ctx context.Context, id string) (domain.Actor, error)
}
