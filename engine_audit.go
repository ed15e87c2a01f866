package refreshguard

import (
	"context"
	"errors"
	"time"

	"github.com/S-nect1/refreshguard/token"
)

const (
	auditEventFamilyCreated  = "token_family_created"
	auditEventRotateSuccess  = "token_rotate_success"
	auditEventRotateInvalid  = "token_rotate_invalid"
	auditEventRotateReplayed = "token_replay_detected"
	auditEventRetryServed    = "token_rotate_retry_served"
	auditEventFamilyRevoked  = "token_family_revoked"
)

// AuditErrorCode defines a public type used by refreshguard APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrTokenNotFound AuditErrorCode = "token_not_found"
	auditErrTokenInvalid  AuditErrorCode = "token_invalid"
	auditErrTokenReplay   AuditErrorCode = "token_replay"
	auditErrUnavailable   AuditErrorCode = "backend_unavailable"
	auditErrInternal      AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	familyID token.FamilyID,
	tokenID token.ID,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		FamilyID:  string(familyID),
		TokenID:   string(tokenID),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrTokenNotFound):
		return auditErrTokenNotFound
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrTokenReplayDetected):
		return auditErrTokenReplay
	case errors.Is(err, token.ErrRedisUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
