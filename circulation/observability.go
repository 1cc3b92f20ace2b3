package circulation

// Operation type identifiers, used for observability labels.
const (
	BorrowBookOperation   = "BorrowBook"
	ReturnBookOperation   = "ReturnBook"
	HistoryOperation      = "GetUserBorrowHistory"
	SweepOverdueOperation = "SweepOverdue"
)

// Metric names emitted through the lending.MetricsCollector port. Retry
// metrics are emitted by package retry under its own names.
const (
	OperationDurationMetric = "circulation_operation_duration_seconds"
	OperationErrorsMetric   = "circulation_operation_errors_total"
)

// Structured log attribute keys.
const (
	LogAttrOperation   = "operation"
	LogAttrError       = "error"
	LogAttrDurationMS  = "duration_ms"
	LogAttrUserID      = "user_id"
	LogAttrBookID      = "book_id"
	LogAttrRecordID    = "record_id"
	LogAttrRecordCount = "record_count"
	LogAttrStatus      = "status"
)
