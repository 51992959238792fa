package domain

import "time"

type ActorRole string

const (
	ActorRoleAdministrator ActorRole = "ADMINISTRATOR"
	ActorRoleOperator      ActorRole = "OPERATOR"
)

// Actor is an administrator identity allowed to approve, reject, or refund
// transactions. SecretHash is a bcrypt hash; the cleartext secret is never
// stored or logged.
type Actor struct {
	ID         string
	Name       string
	Role       ActorRole
	SecretHash string
	CreatedAt  time.Time
}
