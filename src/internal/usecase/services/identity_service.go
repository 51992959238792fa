package services

import (
	"context"
	"errors"
	"strings"

	"github.com/PersonalHub360/gateway-sub002/src/internal/adapter/repository/repo_interfaces"
	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

// IdentityService resolves administrator identities for approve, reject,
// and refund calls. Secrets are bcrypt-hashed at rest; the engine trusts
// the resolved identity and performs no further authorization.
type IdentityService struct {
	actorRepo repo_interfaces.ActorRepository
}

func NewIdentityService(actorRepo repo_interfaces.ActorRepository) *IdentityService {
	return &IdentityService{actorRepo: actorRepo}
}

func (s *IdentityService) Resolve(ctx context.Context, actorID, secret string) (domain.Actor, error) {
	actorID = strings.TrimSpace(actorID)

	actor, err := s.actorRepo.Get(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			logger.Info("identity service unknown actor", logger.Fields{
				"actorId": actorID,
			})
			return domain.Actor{}, domain.ErrUnauthorizedActor
		}
		return domain.Actor{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(actor.SecretHash), []byte(strings.TrimSpace(secret))); err != nil {
		logger.Info("identity service secret mismatch", logger.Fields{
			"actorId": actorID,
		})
		return domain.Actor{}, domain.ErrUnauthorizedActor
	}

	return actor, nil
}

// EnsureActor seeds an administrator if the id is free. Used at startup so
// a fresh deployment has a working review identity.
func (s *IdentityService) EnsureActor(ctx context.Context, id, name, secret string, role domain.ActorRole) error {
	if _, err := s.actorRepo.Get(ctx, id); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.actorRepo.Create(ctx, domain.Actor{
		ID:         id,
		Name:       name,
		Role:       role,
		SecretHash: string(hash),
	})
	if err != nil && !errors.Is(err, domain.ErrConcurrencyConflict) {
		return err
	}

	logger.Info("identity service actor seeded", logger.Fields{
		"actorId": id,
		"role":    role,
	})
	return nil
}
