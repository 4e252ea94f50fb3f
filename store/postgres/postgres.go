/*
Package postgres provides the PostgreSQL-backed ar.Store implementation.

PURPOSE:
  Production store over pgxpool. Same schema shape as store/sqlite; the
  schema itself is managed by embedded golang-migrate migrations (see
  migrate.go) rather than ad-hoc CREATE IF NOT EXISTS, since multiple
  server instances may share one database.

APPEND-ONLY ENFORCEMENT:
  As in the sqlite store: the payments table sees INSERT and SELECT only.

USAGE:
  store, err := postgres.New(ctx, os.Getenv("DATABASE_URL"))
  defer store.Close()

SEE ALSO:
  - ar/store.go: the interfaces implemented here
  - migrate.go: embedded versioned migrations
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/warp/tuition-engine/ar"
)

// Store implements ar.Store on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects, pings, and migrates. databaseURL is a standard postgres://
// connection string.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := runMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// =============================================================================
// PAYMENTS - Append-only
// =============================================================================

func (s *Store) AppendPayment(ctx context.Context, p ar.PaymentEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO payments (id, student_id, pay_type, amount, payment_date, month_for, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, string(p.StudentID), string(p.Type), p.Amount.String(),
		p.PaymentDate.Time(), p.MonthFor, p.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

func (s *Store) PaymentsForStudent(ctx context.Context, id ar.StudentID) ([]ar.PaymentEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, student_id, pay_type, amount::text, payment_date, month_for, COALESCE(note, '')
		FROM payments WHERE student_id = $1 ORDER BY payment_date, id`,
		string(id),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (s *Store) ListPayments(ctx context.Context, f ar.PaymentFilter) ([]ar.PaymentEvent, error) {
	query := `
		SELECT p.id, p.student_id, p.pay_type, p.amount::text, p.payment_date, p.month_for, COALESCE(p.note, '')
		FROM payments p
		JOIN students s ON p.student_id = s.id
		WHERE 1=1`
	var args []any

	if f.StudentID != "" {
		args = append(args, string(f.StudentID))
		query += fmt.Sprintf(" AND p.student_id = $%d", len(args))
	}
	if f.CenterID != ar.CenterAll {
		args = append(args, string(f.CenterID))
		query += fmt.Sprintf(" AND s.center_id = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From.Time())
		query += fmt.Sprintf(" AND p.payment_date >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To.Time())
		query += fmt.Sprintf(" AND p.payment_date <= $%d", len(args))
	}
	query += " ORDER BY p.payment_date DESC, p.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func scanPayments(rows pgx.Rows) ([]ar.PaymentEvent, error) {
	var result []ar.PaymentEvent
	for rows.Next() {
		var (
			p                          ar.PaymentEvent
			studentID, payType, amount string
			payDate                    time.Time
		)
		if err := rows.Scan(&p.ID, &studentID, &payType, &amount, &payDate, &p.MonthFor, &p.Note); err != nil {
			return nil, err
		}
		p.StudentID = ar.StudentID(studentID)
		p.Type = ar.PaymentType(payType)

		var err error
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
		}
		p.PaymentDate = ar.DateOf(payDate)
		result = append(result, p)
	}
	return result, rows.Err()
}

// =============================================================================
// STUDENTS
// =============================================================================

const studentColumns = `id, first_name, last_name, age, gender, parent, contact, email,
	center_id, tuition::text, enrollment_date, status`

func (s *Store) GetStudent(ctx context.Context, id ar.StudentID) (ar.Student, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, string(id))
	student, err := scanStudent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ar.Student{}, ar.ErrStudentNotFound
	}
	return student, err
}

func (s *Store) ListStudents(ctx context.Context, f ar.StudentFilter) ([]ar.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE 1=1`
	var args []any

	if f.CenterID != ar.CenterAll {
		args = append(args, string(f.CenterID))
		query += fmt.Sprintf(" AND center_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
		n := len(args)
		query += fmt.Sprintf(` AND (LOWER(first_name || ' ' || last_name) LIKE $%d
			OR LOWER(parent) LIKE $%d OR contact LIKE $%d)`, n, n, n)
	}
	query += " ORDER BY last_name, first_name"

	rows, err := s.pool.Query(ctx, query, args...)
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
	_, err := s.pool.Exec(ctx, `
		INSERT INTO students (id, first_name, last_name, age, gender, parent,
			contact, email, center_id, tuition, enrollment_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		string(student.ID), student.FirstName, student.LastName, student.Age,
		student.Gender, student.Parent, student.Contact, student.Email,
		string(student.CenterID), student.Tuition.String(),
		student.EnrollmentDate.Time(), string(student.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

func (s *Store) UpdateStudent(ctx context.Context, student ar.Student) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE students SET
			first_name = $1, last_name = $2, age = $3, gender = $4, parent = $5,
			contact = $6, email = $7, center_id = $8, tuition = $9,
			enrollment_date = $10, status = $11
		WHERE id = $12`,
		student.FirstName, student.LastName, student.Age, student.Gender,
		student.Parent, student.Contact, student.Email, string(student.CenterID),
		student.Tuition.String(), student.EnrollmentDate.Time(),
		string(student.Status), string(student.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ar.ErrStudentNotFound
	}
	return nil
}

func (s *Store) DeactivateStudent(ctx context.Context, id ar.StudentID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE students SET status = 'inactive' WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("failed to deactivate student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ar.ErrStudentNotFound
	}
	return nil
}

func scanStudent(row pgx.Row) (ar.Student, error) {
	var (
		student                       ar.Student
		id, centerID, tuition, status string
		enrollDate                    time.Time
	)
	err := row.Scan(&id, &student.FirstName, &student.LastName, &student.Age,
		&student.Gender, &student.Parent, &student.Contact, &student.Email,
		&centerID, &tuition, &enrollDate, &status)
	if err != nil {
		return ar.Student{}, err
	}

	student.ID = ar.StudentID(id)
	student.CenterID = ar.CenterID(centerID)
	student.Status = ar.StudentStatus(status)
	student.EnrollmentDate = ar.DateOf(enrollDate)

	if student.Tuition, err = decimal.NewFromString(tuition); err != nil {
		return ar.Student{}, fmt.Errorf("corrupt tuition %q: %w", tuition, err)
	}
	return student, nil
}

// =============================================================================
// CENTERS
// =============================================================================

func (s *Store) GetCenter(ctx context.Context, id ar.CenterID) (ar.Center, error) {
	var (
		c   ar.Center
		cid string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(address, ''), capacity FROM centers WHERE id = $1`,
		string(id)).Scan(&cid, &c.Name, &c.Address, &c.Capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return ar.Center{}, ar.ErrCenterNotFound
	}
	if err != nil {
		return ar.Center{}, err
	}
	c.ID = ar.CenterID(cid)
	return c, nil
}

func (s *Store) ListCenters(ctx context.Context) ([]ar.Center, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, COALESCE(address, ''), capacity FROM centers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ar.Center
	for rows.Next() {
		var (
			c   ar.Center
			cid string
		)
		if err := rows.Scan(&cid, &c.Name, &c.Address, &c.Capacity); err != nil {
			return nil, err
		}
		c.ID = ar.CenterID(cid)
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) SaveCenter(ctx context.Context, c ar.Center) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO centers (id, name, address, capacity) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name,
			address = EXCLUDED.address, capacity = EXCLUDED.capacity`,
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
	var setting ar.Setting
	err := s.pool.QueryRow(ctx,
		`SELECT key, value, COALESCE(description, '') FROM settings WHERE key = $1`, key).
		Scan(&setting.Key, &setting.Value, &setting.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return ar.Setting{}, ar.ErrSettingNotFound
	}
	if err != nil {
		return ar.Setting{}, err
	}
	return setting, nil
}

func (s *Store) ListSettings(ctx context.Context) ([]ar.Setting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value, COALESCE(description, '') FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ar.Setting
	for rows.Next() {
		var setting ar.Setting
		if err := rows.Scan(&setting.Key, &setting.Value, &setting.Description); err != nil {
			return nil, err
		}
		result = append(result, setting)
	}
	return result, rows.Err()
}

func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE settings SET value = $1 WHERE key = $2`, value, key)
	if err != nil {
		return fmt.Errorf("failed to update setting: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ar.ErrSettingNotFound
	}
	return nil
}
