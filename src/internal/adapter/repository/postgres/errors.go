package postgres

import (
	"errors"
	"strings"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/lib/pq"
)

const (
	codeUniqueViolation = "23505"
	codeSerialization   = "40001"
	codeDeadlock        = "40P01"
)

// translateError folds driver-level failures into the domain sentinels the
// services already know how to handle. A unique violation on the
// refund_of_id index means a concurrent refund won, so that one surfaces
// as ErrRefundAlreadyIssued rather than a generic conflict.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case codeUniqueViolation:
		if strings.Contains(pqErr.Constraint, "refund_of_id") {
			return domain.ErrRefundAlreadyIssued
		}
		return domain.ErrConcurrencyConflict
	case codeSerialization, codeDeadlock:
		return domain.ErrConcurrencyConflict
	}

	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == codeUniqueViolation
	}
	return false
}
