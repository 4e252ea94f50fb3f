/*
Package sqlite provides the SQLite-backed ar.Store implementation.

PURPOSE:
  Default embedded store for the childcare backend. Schema mirrors the
  production Postgres store (store/postgres); only SQL dialect differs.

TABLES:
  centers:  seeded center roster (id, name, address, capacity)
  students: enrollment records; "deletion" flips status to inactive
  payments: the append-only payment ledger
  settings: string-keyed mutable configuration

APPEND-ONLY ENFORCEMENT:
  The payments table has no UPDATE and no DELETE statement anywhere in this
  package. AppendPayment is the only write touching it.

STORAGE CONVENTIONS:
  - Money as TEXT via decimal.String(): exact, no float drift
  - Dates as TEXT in YYYY-MM-DD

WAL MODE:
  Opened with WAL so concurrent report reads don't block the writer.

USAGE:
  store, err := sqlite.New("./childcare.db")   // ":memory:" for dev
  defer store.Close()

SEE ALSO:
  - ar/store.go: the interfaces implemented here
  - store/postgres: pgx implementation with versioned migrations
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/tuition-engine/ar"
)

// Store implements ar.Store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and auto-migrates) a SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS centers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		capacity INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		age INTEGER,
		gender TEXT,
		parent TEXT,
		contact TEXT,
		email TEXT,
		center_id TEXT NOT NULL REFERENCES centers(id),
		tuition TEXT NOT NULL,
		enrollment_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
	);

	CREATE INDEX IF NOT EXISTS idx_students_center ON students(center_id);
	CREATE INDEX IF NOT EXISTS idx_students_status ON students(status);

	-- Append-only payment ledger. No UPDATE, no DELETE, ever.
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		pay_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		month_for TEXT NOT NULL,
		note TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_payments_student ON payments(student_id);
	CREATE INDEX IF NOT EXISTS idx_payments_month ON payments(month_for);
	CREATE INDEX IF NOT EXISTS idx_payments_date ON payments(payment_date DESC);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		description TEXT
	);

	INSERT OR IGNORE INTO settings (key, value, description) VALUES
		('billing_day', '1', 'Day of month statements are issued'),
		('late_fee_percent', '0', 'Percent surcharge applied to overdue balances'),
		('default_capacity', '40', 'Capacity assumed for centers created without one'),
		('currency', 'USD', 'Display currency for monetary values');
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PAYMENTS - Append-only
// =============================================================================

func (s *Store) AppendPayment(ctx context.Context, p ar.PaymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, student_id, pay_type, amount, payment_date, month_for, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.StudentID), string(p.Type), p.Amount.String(),
		p.PaymentDate.String(), p.MonthFor, p.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

func (s *Store) PaymentsForStudent(ctx context.Context, id ar.StudentID) ([]ar.PaymentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, pay_type, amount, payment_date, month_for, note
		FROM payments WHERE student_id = ? ORDER BY payment_date, id`,
		string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (s *Store) ListPayments(ctx context.Context, f ar.PaymentFilter) ([]ar.PaymentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT p.id, p.student_id, p.pay_type, p.amount, p.payment_date, p.month_for, p.note
		FROM payments p
		JOIN students s ON p.student_id = s.id
		WHERE 1=1`
	var args []any

	if f.StudentID != "" {
		query += " AND p.student_id = ?"
		args = append(args, string(f.StudentID))
	}
	if f.CenterID != ar.CenterAll {
		query += " AND s.center_id = ?"
		args = append(args, string(f.CenterID))
	}
	if !f.From.IsZero() {
		query += " AND p.payment_date >= ?"
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		query += " AND p.payment_date <= ?"
		args = append(args, f.To.String())
	}
	query += " ORDER BY p.payment_date DESC, p.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func scanPayments(rows *sql.Rows) ([]ar.PaymentEvent, error) {
	var result []ar.PaymentEvent
	for rows.Next() {
		var (
			p                          ar.PaymentEvent
			studentID, payType, amount string
			payDate                    string
			note                       sql.NullString
		)
		if err := rows.Scan(&p.ID, &studentID, &payType, &amount, &payDate, &p.MonthFor, &note); err != nil {
			return nil, err
		}
		p.StudentID = ar.StudentID(studentID)
		p.Type = ar.PaymentType(payType)
		p.Note = note.String

		var err error
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
		}
		if p.PaymentDate, err = ar.ParseDate(payDate); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// =============================================================================
// STUDENTS
// =============================================================================

const studentColumns = `id, first_name, last_name, age, gender, parent, contact, email,
	center_id, tuition, enrollment_date, status`

func (s *Store) GetStudent(ctx context.Context, id ar.StudentID) (ar.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ?`, string(id))
	student, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ar.Student{}, ar.ErrStudentNotFound
	}
	return student, err
}

func (s *Store) ListStudents(ctx context.Context, f ar.StudentFilter) ([]ar.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + studentColumns + ` FROM students WHERE 1=1`
	var args []any

	if f.CenterID != ar.CenterAll {
		query += " AND center_id = ?"
		args = append(args, string(f.CenterID))
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.Search != "" {
		query += ` AND (LOWER(first_name || ' ' || last_name) LIKE ?
			OR LOWER(parent) LIKE ? OR contact LIKE ?)`
		pattern := "%" + strings.ToLower(f.Search) + "%"
		args = append(args, pattern, pattern, "%"+f.Search+"%")
	}
	query += " ORDER BY last_name, first_name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ar.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, student)
	}
	return result, rows.Err()
}

func (s *Store) SaveStudent(ctx context.Context, student ar.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(student.ID), student.FirstName, student.LastName, student.Age,
		student.Gender, student.Parent, student.Contact, student.Email,
		string(student.CenterID), student.Tuition.String(),
		student.EnrollmentDate.String(), string(student.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

func (s *Store) UpdateStudent(ctx context.Context, student ar.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE students SET
			first_name = ?, last_name = ?, age = ?, gender = ?, parent = ?,
			contact = ?, email = ?, center_id = ?, tuition = ?,
			enrollment_date = ?, status = ?
		WHERE id = ?`,
		student.FirstName, student.LastName, student.Age, student.Gender,
		student.Parent, student.Contact, student.Email, string(student.CenterID),
		student.Tuition.String(), student.EnrollmentDate.String(),
		string(student.Status), string(student.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	return requireRow(res, ar.ErrStudentNotFound)
}

func (s *Store) DeactivateStudent(ctx context.Context, id ar.StudentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE students SET status = 'inactive' WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to deactivate student: %w", err)
	}
	return requireRow(res, ar.ErrStudentNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (ar.Student, error) {
	var (
		student                       ar.Student
		id, centerID, tuition, status string
		enrollDate                    string
		age                           sql.NullInt64
		gender, parent, contact       sql.NullString
		email                         sql.NullString
	)
	err := row.Scan(&id, &student.FirstName, &student.LastName, &age, &gender,
		&parent, &contact, &email, &centerID, &tuition, &enrollDate, &status)
	if err != nil {
		return ar.Student{}, err
	}

	student.ID = ar.StudentID(id)
	student.Age = int(age.Int64)
	student.Gender = gender.String
	student.Parent = parent.String
	student.Contact = contact.String
	student.Email = email.String
	student.CenterID = ar.CenterID(centerID)
	student.Status = ar.StudentStatus(status)

	if student.Tuition, err = decimal.NewFromString(tuition); err != nil {
		return ar.Student{}, fmt.Errorf("corrupt tuition %q: %w", tuition, err)
	}
	if student.EnrollmentDate, err = ar.ParseDate(enrollDate); err != nil {
		return ar.Student{}, err
	}
	return student, nil
}

// =============================================================================
// CENTERS
// =============================================================================

func (s *Store) GetCenter(ctx context.Context, id ar.CenterID) (ar.Center, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		c       ar.Center
		cid     string
		address sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, address, capacity FROM centers WHERE id = ?`, string(id)).
		Scan(&cid, &c.Name, &address, &c.Capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return ar.Center{}, ar.ErrCenterNotFound
	}
	if err != nil {
		return ar.Center{}, err
	}
	c.ID = ar.CenterID(cid)
	c.Address = address.String
	return c, nil
}

func (s *Store) ListCenters(ctx context.Context) ([]ar.Center, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, capacity FROM centers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ar.Center
	for rows.Next() {
		var (
			c       ar.Center
			cid     string
			address sql.NullString
		)
		if err := rows.Scan(&cid, &c.Name, &address, &c.Capacity); err != nil {
			return nil, err
		}
		c.ID = ar.CenterID(cid)
		c.Address = address.String
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) SaveCenter(ctx context.Context, c ar.Center) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO centers (id, name, address, capacity) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name,
			address = excluded.address, capacity = excluded.capacity`,
		string(c.ID), c.Name, c.Address, c.Capacity,
	)
	if err != nil {
		return fmt.Errorf("failed to save center: %w", err)
	}
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) GetSetting(ctx context.Context, key string) (ar.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		setting     ar.Setting
		description sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, description FROM settings WHERE key = ?`, key).
		Scan(&setting.Key, &setting.Value, &description)
	if errors.Is(err, sql.ErrNoRows) {
		return ar.Setting{}, ar.ErrSettingNotFound
	}
	if err != nil {
		return ar.Setting{}, err
	}
	setting.Description = description.String
	return setting, nil
}

func (s *Store) ListSettings(ctx context.Context) ([]ar.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, description FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ar.Setting
	for rows.Next() {
		var (
			setting     ar.Setting
			description sql.NullString
		)
		if err := rows.Scan(&setting.Key, &setting.Value, &description); err != nil {
			return nil, err
		}
		setting.Description = description.String
		result = append(result, setting)
	}
	return result, rows.Err()
}

func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE settings SET value = ? WHERE key = ?`, value, key)
	if err != nil {
		return fmt.Errorf("failed to update setting: %w", err)
	}
	return requireRow(res, ar.ErrSettingNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
