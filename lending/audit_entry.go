package lending

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidAuditPayloadJSON = errors.New("audit payload json is not valid")

// AuditEntry is a DTO for one row of the circulation audit trail.
//
// It is built on scalars so the storage layer stays agnostic of the audit
// event types defined in package auditlog. While its properties are exported,
// it should only be constructed with BuildAuditEntry.
type AuditEntry struct {
	EventType   string
	OccurredAt  time.Time
	PayloadJSON []byte
}

// BuildAuditEntry is the factory method for AuditEntry.
// Returns an error if payloadJSON is not valid JSON.
func BuildAuditEntry(eventType string, occurredAt time.Time, payloadJSON []byte) (AuditEntry, error) {
	if !json.Valid(payloadJSON) {
		return AuditEntry{}, ErrInvalidAuditPayloadJSON
	}

	return AuditEntry{
		EventType:   eventType,
		OccurredAt:  occurredAt,
		PayloadJSON: payloadJSON,
	}, nil
}
