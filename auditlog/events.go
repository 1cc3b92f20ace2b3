package auditlog

import (
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/libralend/lending-core-go/lending"
)

// Event type identifiers for the circulation audit trail.
const (
	BorrowRecordedEventType = "BorrowRecorded"
	ReturnRecordedEventType = "ReturnRecorded"
	OverdueFlaggedEventType = "OverdueFlagged"
)

// ErrMappingToAuditEntryFailed is returned when payload serialization fails.
var ErrMappingToAuditEntryFailed = errors.New("mapping to audit entry failed")

// BorrowRecordedPayload captures a successful borrow.
type BorrowRecordedPayload struct {
	RecordID string `json:"record_id"`
	UserID   string `json:"user_id"`
	BookID   string `json:"book_id"`
	DueDate  string `json:"due_date"`
}

// ReturnRecordedPayload captures a return and the verdict frozen at return time.
type ReturnRecordedPayload struct {
	RecordID string `json:"record_id"`
	UserID   string `json:"user_id"`
	BookID   string `json:"book_id"`
	Status   string `json:"status"`
}

// OverdueFlaggedPayload captures one record promoted by the overdue sweep.
type OverdueFlaggedPayload struct {
	RecordID string `json:"record_id"`
	UserID   string `json:"user_id"`
	BookID   string `json:"book_id"`
	DueDate  string `json:"due_date"`
}

// BuildBorrowRecorded maps a freshly created borrow record to an audit entry.
func BuildBorrowRecorded(record lending.BorrowRecord, occurredAt time.Time) (lending.AuditEntry, error) {
	payload := BorrowRecordedPayload{
		RecordID: record.ID.String(),
		UserID:   record.UserID.String(),
		BookID:   record.BookID.String(),
		DueDate:  record.DueDate.Format(time.RFC3339Nano),
	}

	return buildEntry(BorrowRecordedEventType, occurredAt, payload)
}

// BuildReturnRecorded maps a closed borrow record to an audit entry.
func BuildReturnRecorded(record lending.BorrowRecord, status lending.BorrowStatus, occurredAt time.Time) (lending.AuditEntry, error) {
	payload := ReturnRecordedPayload{
		RecordID: record.ID.String(),
		UserID:   record.UserID.String(),
		BookID:   record.BookID.String(),
		Status:   string(status),
	}

	return buildEntry(ReturnRecordedEventType, occurredAt, payload)
}

// BuildOverdueFlagged maps one record promoted by the sweep to an audit entry.
func BuildOverdueFlagged(record lending.BorrowRecord, occurredAt time.Time) (lending.AuditEntry, error) {
	payload := OverdueFlaggedPayload{
		RecordID: record.ID.String(),
		UserID:   record.UserID.String(),
		BookID:   record.BookID.String(),
		DueDate:  record.DueDate.Format(time.RFC3339Nano),
	}

	return buildEntry(OverdueFlaggedEventType, occurredAt, payload)
}

// BorrowRecordedFromJSON unmarshals a stored BorrowRecorded payload.
func BorrowRecordedFromJSON(payloadJSON []byte) (BorrowRecordedPayload, error) {
	payload := BorrowRecordedPayload{}
	if err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, &payload); err != nil {
		return BorrowRecordedPayload{}, err
	}

	return payload, nil
}

// ReturnRecordedFromJSON unmarshals a stored ReturnRecorded payload.
func ReturnRecordedFromJSON(payloadJSON []byte) (ReturnRecordedPayload, error) {
	payload := ReturnRecordedPayload{}
	if err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, &payload); err != nil {
		return ReturnRecordedPayload{}, err
	}

	return payload, nil
}

// OverdueFlaggedFromJSON unmarshals a stored OverdueFlagged payload.
func OverdueFlaggedFromJSON(payloadJSON []byte) (OverdueFlaggedPayload, error) {
	payload := OverdueFlaggedPayload{}
	if err := jsoniter.ConfigFastest.Unmarshal(payloadJSON, &payload); err != nil {
		return OverdueFlaggedPayload{}, err
	}

	return payload, nil
}

func buildEntry(eventType string, occurredAt time.Time, payload any) (lending.AuditEntry, error) {
	payloadJSON, err := jsoniter.ConfigFastest.Marshal(payload)
	if err != nil {
		return lending.AuditEntry{}, errors.Join(ErrMappingToAuditEntryFailed, err)
	}

	entry, err := lending.BuildAuditEntry(eventType, occurredAt, payloadJSON)
	if err != nil {
		return lending.AuditEntry{}, errors.Join(ErrMappingToAuditEntryFailed, err)
	}

	return entry, nil
}
