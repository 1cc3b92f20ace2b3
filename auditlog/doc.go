// Package auditlog defines the typed events of the circulation audit trail
// and their JSON mapping to lending.AuditEntry rows.
//
// Every lifecycle transition (borrow, return, overdue sweep) appends one
// entry within the same transaction as the state change, so the trail can
// never disagree with the borrow records. The entries are append-only and
// carry no authority: nothing in the core reads them back to make decisions.
package auditlog
