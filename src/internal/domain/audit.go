package domain

import "time"

// SystemActor is the actor recorded on transitions the engine performs on
// its own, such as auto-approval commits and review-timeout expiries.
const SystemActor = "system"

// AuditEvent records one accepted status transition. The trail is
// append-only: no update or delete operation exists anywhere in the engine,
// and it is never consulted for authorization decisions.
type AuditEvent struct {
	ID            string
	TransactionID string
	FromStatus    TransactionStatus
	ToStatus      TransactionStatus
	Actor         string
	Reason        *string
	CreatedAt     time.Time
}
