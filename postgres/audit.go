package postgres

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/libralend/lending-core-go/lending"
)

const actionAppendAuditEntry = "append audit entry"

// AppendAuditEntry writes one row of the circulation audit trail. Entries are
// append-only; ordering comes from the bigserial entry number.
func (q queries) AppendAuditEntry(ctx context.Context, entry lending.AuditEntry) error {
	dataset := builder.Insert(q.tables.audit).Rows(goqu.Record{
		colEventType:  entry.EventType,
		colOccurredAt: entry.OccurredAt,
		colPayload:    goqu.L(castJsonb, string(entry.PayloadJSON)),
	})

	_, err := q.runExec(ctx, actionAppendAuditEntry, dataset)

	return err
}
