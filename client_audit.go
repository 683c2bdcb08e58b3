package goSession

import (
	"context"
	"errors"
	"time"
)

const (
	auditErrValidation = "validation"
	auditErrState      = "state"
	auditErrInternal   = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Subject:   subject,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = code
	}

	c.audit.Emit(ctx, event)
}

// auditErrorCode reduces err to a stable code. Raw messages are never
// audited since provider messages may echo input.
func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !errors.As(err, &e) {
		return auditErrInternal
	}
	switch e.Kind {
	case KindValidation:
		return auditErrValidation
	case KindState:
		return auditErrState
	case KindProvider:
		return string(e.Code)
	default:
		return auditErrInternal
	}
}
