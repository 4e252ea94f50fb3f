/*
store.go - Persistence interfaces

PURPOSE:
  Defines the boundary between the AR engine and its backing store.
  Implementations: store/sqlite (embedded default), store/postgres
  (production), ar/store (in-memory, tests and dev).

APPEND-ONLY CONTRACT:
  The payment ledger has no update and no delete. AppendPayment is the only
  write. Everything derived (positions, reports, stats) is recomputed from
  the ledger on each query; there is no cached balance to invalidate.

Students and centers are ordinary mutable records; student "deletion" is a
soft status flip to inactive so the payment history stays attached.
*/
package ar

import "context"

// =============================================================================
// FILTERS
// =============================================================================

// StudentFilter narrows student listings. Zero values mean "no filter".
type StudentFilter struct {
	CenterID CenterID
	Status   StudentStatus
	Search   string // matches name, parent, or contact, case-insensitive
}

// PaymentFilter narrows payment listings. Zero values mean "no filter".
type PaymentFilter struct {
	StudentID StudentID
	CenterID  CenterID
	From      Date
	To        Date
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// PaymentStore persists the append-only payment ledger.
type PaymentStore interface {
	// AppendPayment records a payment event. This is the ONLY write.
	AppendPayment(ctx context.Context, p PaymentEvent) error

	// PaymentsForStudent returns every payment ever recorded for a student,
	// ordered by payment date.
	PaymentsForStudent(ctx context.Context, id StudentID) ([]PaymentEvent, error)

	// ListPayments returns payments matching the filter, newest first.
	ListPayments(ctx context.Context, f PaymentFilter) ([]PaymentEvent, error)
}

// StudentStore persists student records.
type StudentStore interface {
	// GetStudent returns a student or ErrStudentNotFound.
	GetStudent(ctx context.Context, id StudentID) (Student, error)

	// ListStudents returns students matching the filter, ordered by name.
	ListStudents(ctx context.Context, f StudentFilter) ([]Student, error)

	// SaveStudent inserts a new student.
	SaveStudent(ctx context.Context, s Student) error

	// UpdateStudent replaces an existing student or returns ErrStudentNotFound.
	UpdateStudent(ctx context.Context, s Student) error

	// DeactivateStudent soft-deletes: flips status to inactive.
	DeactivateStudent(ctx context.Context, id StudentID) error
}

// CenterStore persists center records.
type CenterStore interface {
	// GetCenter returns a center or ErrCenterNotFound.
	GetCenter(ctx context.Context, id CenterID) (Center, error)

	// ListCenters returns all centers ordered by name.
	ListCenters(ctx context.Context) ([]Center, error)

	// SaveCenter upserts a center. Centers are seeded data; this exists for
	// provisioning tooling and tests, not the public API.
	SaveCenter(ctx context.Context, c Center) error
}

// SettingStore persists the string-keyed settings table.
type SettingStore interface {
	// GetSetting returns a setting or ErrSettingNotFound.
	GetSetting(ctx context.Context, key string) (Setting, error)

	// ListSettings returns all settings ordered by key.
	ListSettings(ctx context.Context) ([]Setting, error)

	// PutSetting updates an existing setting's value or returns
	// ErrSettingNotFound. Keys are fixed at provisioning time.
	PutSetting(ctx context.Context, key, value string) error
}

// Store is the full persistence surface the service layer works against.
type Store interface {
	PaymentStore
	StudentStore
	CenterStore
	SettingStore
}
