/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements overtime.RequestStore and overtime.EmployeeDirectory using
  database/sql with SQLite. The same statements port to PostgreSQL with
  minor dialect changes.

KEY TABLES:
  requests:   One row per overtime request, both kinds. The correction
              history is stored as a JSON column; it is only ever read
              whole and appended to, never queried into.
  employees:  Directory records with manager links for quota headcount.

CONDITIONAL UPDATES:
  UpdateRequest writes only WHERE id AND status match what the engine
  read. Zero rows affected means either the row vanished (ErrNotFound)
  or the status moved (ErrConcurrentModification); a follow-up lookup
  disambiguates.

INTERNAL ID UNIQUENESS:
  A unique index on (kind, internal_id) backs the sequential "N/YY"
  numbers. Writers are additionally serialized in-process through the
  store mutex, so a same-process id race cannot produce duplicates.

AGGREGATES:
  Hour sums (quota usage, balances) load the matching hour columns and
  sum them with decimal in Go rather than SUM() in SQL, keeping the 0.5
  precision contract independent of SQLite numeric coercion.

WAL MODE:
  The database is opened with WAL for better read concurrency. Use
  ":memory:" in tests.

SEE ALSO:
  - overtime/store.go: Interface definitions
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/overtime-engine/overtime"
)

// Store implements the persistence interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var _ overtime.RequestStore = (*Store)(nil)
var _ overtime.EmployeeDirectory = (*Store)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
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
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		internal_id TEXT NOT NULL,
		submitted_by TEXT NOT NULL,
		created_by TEXT NOT NULL,
		supervisor TEXT NOT NULL,
		status TEXT NOT NULL,
		payment INTEGER NOT NULL DEFAULT 0,
		hours TEXT NOT NULL,
		date TEXT,
		work_start TEXT,
		work_end TEXT,
		scheduled_day_off TEXT,
		reason TEXT NOT NULL DEFAULT '',
		supervisor_approved_at TEXT,
		supervisor_approved_by TEXT NOT NULL DEFAULT '',
		supervisor_final_approval INTEGER NOT NULL DEFAULT 0,
		plant_manager_approved_at TEXT,
		plant_manager_approved_by TEXT NOT NULL DEFAULT '',
		approved_at TEXT,
		approved_by TEXT NOT NULL DEFAULT '',
		rejected_at TEXT,
		rejected_by TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		accounted_at TEXT,
		accounted_by TEXT NOT NULL DEFAULT '',
		cancelled_at TEXT,
		cancelled_by TEXT NOT NULL DEFAULT '',
		cancellation_reason TEXT NOT NULL DEFAULT '',
		payout_converted_at TEXT,
		payout_converted_by TEXT NOT NULL DEFAULT '',
		edited_at TEXT,
		edited_by TEXT NOT NULL DEFAULT '',
		correction_history TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Sequential "N/YY" numbers are unique per kind per year.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_kind_internal
		ON requests(kind, internal_id);

	CREATE INDEX IF NOT EXISTS idx_requests_submitter
		ON requests(kind, submitted_by, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_requests_supervisor_status
		ON requests(supervisor, status);
	-- Quota usage scans (hot path on every payout approval)
	CREATE INDEX IF NOT EXISTS idx_requests_fastpath
		ON requests(supervisor_approved_by, supervisor_final_approval, status);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		manager_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_employees_manager
		ON employees(manager_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REQUEST STORE
// =============================================================================

const requestColumns = `id, kind, internal_id, submitted_by, created_by, supervisor,
	status, payment, hours, date, work_start, work_end, scheduled_day_off, reason,
	supervisor_approved_at, supervisor_approved_by, supervisor_final_approval,
	plant_manager_approved_at, plant_manager_approved_by,
	approved_at, approved_by, rejected_at, rejected_by, rejection_reason,
	accounted_at, accounted_by, cancelled_at, cancelled_by, cancellation_reason,
	payout_converted_at, payout_converted_by, edited_at, edited_by,
	correction_history, created_at, updated_at`

func (s *Store) FindRequest(ctx context.Context, id string) (*overtime.Request, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, overtime.ErrNotFound
	}
	return scanRequest(rows)
}

func (s *Store) FindRequests(ctx context.Context, ids []string) ([]*overtime.Request, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*overtime.Request, len(ids))
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		byID[r.ID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve input order; missing ids are dropped.
	out := make([]*overtime.Request, 0, len(byID))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) InsertRequest(ctx context.Context, r *overtime.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := json.Marshal(historyOrEmpty(r.CorrectionHistory))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO requests (`+requestColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, string(r.Kind), r.InternalID, string(r.SubmittedBy), string(r.CreatedBy),
		string(r.Supervisor), string(r.Status), boolInt(r.Payment), r.Hours.String(),
		nullTime(r.Date), nullTime(r.WorkStart), nullTime(r.WorkEnd),
		nullTime(r.ScheduledDayOff), r.Reason,
		nullTime(r.SupervisorApprovedAt), string(r.SupervisorApprovedBy),
		boolInt(r.SupervisorFinalApproval),
		nullTime(r.PlantManagerApprovedAt), string(r.PlantManagerApprovedBy),
		nullTime(r.ApprovedAt), string(r.ApprovedBy),
		nullTime(r.RejectedAt), string(r.RejectedBy), r.RejectionReason,
		nullTime(r.AccountedAt), string(r.AccountedBy),
		nullTime(r.CancelledAt), string(r.CancelledBy), r.CancellationReason,
		nullTime(r.PayoutConvertedAt), string(r.PayoutConvertedBy),
		nullTime(r.EditedAt), string(r.EditedBy),
		string(history), r.CreatedAt.Format(time.RFC3339Nano), r.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil && isUniqueConstraintError(err) {
		return overtime.ErrDuplicateInternalID
	}
	return err
}

func (s *Store) UpdateRequest(ctx context.Context, r *overtime.Request, expectStatus overtime.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := json.Marshal(historyOrEmpty(r.CorrectionHistory))
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE requests SET
			supervisor = ?, status = ?, payment = ?, hours = ?,
			date = ?, work_start = ?, work_end = ?, scheduled_day_off = ?, reason = ?,
			supervisor_approved_at = ?, supervisor_approved_by = ?, supervisor_final_approval = ?,
			plant_manager_approved_at = ?, plant_manager_approved_by = ?,
			approved_at = ?, approved_by = ?,
			rejected_at = ?, rejected_by = ?, rejection_reason = ?,
			accounted_at = ?, accounted_by = ?,
			cancelled_at = ?, cancelled_by = ?, cancellation_reason = ?,
			payout_converted_at = ?, payout_converted_by = ?,
			edited_at = ?, edited_by = ?,
			correction_history = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(r.Supervisor), string(r.Status), boolInt(r.Payment), r.Hours.String(),
		nullTime(r.Date), nullTime(r.WorkStart), nullTime(r.WorkEnd),
		nullTime(r.ScheduledDayOff), r.Reason,
		nullTime(r.SupervisorApprovedAt), string(r.SupervisorApprovedBy),
		boolInt(r.SupervisorFinalApproval),
		nullTime(r.PlantManagerApprovedAt), string(r.PlantManagerApprovedBy),
		nullTime(r.ApprovedAt), string(r.ApprovedBy),
		nullTime(r.RejectedAt), string(r.RejectedBy), r.RejectionReason,
		nullTime(r.AccountedAt), string(r.AccountedBy),
		nullTime(r.CancelledAt), string(r.CancelledBy), r.CancellationReason,
		nullTime(r.PayoutConvertedAt), string(r.PayoutConvertedBy),
		nullTime(r.EditedAt), string(r.EditedBy),
		string(history), r.UpdatedAt.Format(time.RFC3339Nano),
		r.ID, string(expectStatus))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var current string
		err := s.db.QueryRowContext(ctx,
			`SELECT status FROM requests WHERE id = ?`, r.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return overtime.ErrNotFound
		}
		if err != nil {
			return err
		}
		return overtime.ErrConcurrentModification
	}
	return nil
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return overtime.ErrNotFound
	}
	return nil
}

func (s *Store) LatestBySubmitter(ctx context.Context, kind overtime.Kind, submitter overtime.Identity) (*overtime.Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM requests
		WHERE kind = ? AND submitted_by = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		string(kind), string(submitter))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, overtime.ErrNotFound
	}
	return scanRequest(rows)
}

func (s *Store) InternalIDs(ctx context.Context, kind overtime.Kind, yearSuffix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT internal_id FROM requests
		WHERE kind = ? AND internal_id LIKE ?`,
		string(kind), "%/"+yearSuffix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) UsedQuotaHours(ctx context.Context, supervisor overtime.Identity, from, to time.Time) (decimal.Decimal, error) {
	used := decimal.Zero

	// Fast-path approved orders, counted at their final approval time.
	orderHours, err := s.hourColumn(ctx, `
		SELECT hours FROM requests
		WHERE kind = ? AND supervisor_final_approval = 1
		  AND supervisor_approved_by = ?
		  AND status IN (?, ?)
		  AND approved_at >= ? AND approved_at < ?`,
		string(overtime.KindOrder), string(supervisor),
		string(overtime.StatusApproved), string(overtime.StatusAccounted),
		from.Format(time.RFC3339Nano), to.Format(time.RFC3339Nano))
	if err != nil {
		return decimal.Zero, err
	}
	for _, h := range orderHours {
		used = used.Add(h)
	}

	// Fast-path approved payout withdrawals: negative hours, absolute
	// value, counted at the supervisor's stage-1 stamp.
	withdrawalHours, err := s.hourColumn(ctx, `
		SELECT hours FROM requests
		WHERE kind = ? AND supervisor_final_approval = 1
		  AND supervisor_approved_by = ?
		  AND status IN (?, ?)
		  AND CAST(hours AS REAL) < 0
		  AND supervisor_approved_at >= ? AND supervisor_approved_at < ?`,
		string(overtime.KindSubmission), string(supervisor),
		string(overtime.StatusApproved), string(overtime.StatusAccounted),
		from.Format(time.RFC3339Nano), to.Format(time.RFC3339Nano))
	if err != nil {
		return decimal.Zero, err
	}
	for _, h := range withdrawalHours {
		used = used.Add(h.Abs())
	}

	return used, nil
}

func (s *Store) BalanceHours(ctx context.Context, submitter overtime.Identity) (decimal.Decimal, error) {
	hours, err := s.hourColumn(ctx, `
		SELECT hours FROM requests
		WHERE kind = ? AND submitted_by = ?
		  AND status NOT IN (?, ?)`,
		string(overtime.KindSubmission), string(submitter),
		string(overtime.StatusCancelled), string(overtime.StatusRejected))
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, h := range hours {
		balance = balance.Add(h)
	}
	return balance, nil
}

func (s *Store) PendingForSupervisor(ctx context.Context, supervisor overtime.Identity) ([]*overtime.Request, error) {
	return s.queryRequests(ctx, `
		SELECT `+requestColumns+` FROM requests
		WHERE supervisor = ? AND status = ?
		ORDER BY created_at ASC`,
		string(supervisor), string(overtime.StatusPending))
}

func (s *Store) BySubmitter(ctx context.Context, submitter overtime.Identity) ([]*overtime.Request, error) {
	return s.queryRequests(ctx, `
		SELECT `+requestColumns+` FROM requests
		WHERE submitted_by = ?
		ORDER BY created_at DESC`,
		string(submitter))
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func (s *Store) FindEmployee(ctx context.Context, id overtime.Identity) (*overtime.Employee, error) {
	var e overtime.Employee
	var eid, manager string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, manager_id FROM employees WHERE id = ?`,
		string(id)).Scan(&eid, &e.Name, &e.Email, &manager)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, overtime.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.ID = overtime.Identity(eid)
	e.ManagerID = overtime.Identity(manager)
	return &e, nil
}

func (s *Store) CountReports(ctx context.Context, manager overtime.Identity) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employees WHERE manager_id = ?`,
		string(manager)).Scan(&n)
	return n, err
}

// SaveEmployee upserts a directory record.
func (s *Store) SaveEmployee(ctx context.Context, e overtime.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, manager_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			manager_id = excluded.manager_id`,
		string(e.ID), e.Name, e.Email, string(e.ManagerID))
	return err
}

// ListEmployees returns the whole directory, ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]overtime.Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, manager_id FROM employees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []overtime.Employee
	for rows.Next() {
		var e overtime.Employee
		var id, manager string
		if err := rows.Scan(&id, &e.Name, &e.Email, &manager); err != nil {
			return nil, err
		}
		e.ID = overtime.Identity(id)
		e.ManagerID = overtime.Identity(manager)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func (s *Store) queryRequests(ctx context.Context, query string, args ...any) ([]*overtime.Request, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*overtime.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) hourColumn(ctx context.Context, query string, args ...any) ([]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []decimal.Decimal
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		h, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt hours value %q: %w", raw, err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanRequest(rows *sql.Rows) (*overtime.Request, error) {
	var (
		r                           overtime.Request
		kind, status                string
		submittedBy, createdBy      string
		supervisor                  string
		payment, finalApproval      int
		hours                       string
		date, workStart, workEnd    sql.NullString
		dayOff                      sql.NullString
		supApprovedAt, pmApprovedAt sql.NullString
		approvedAt, rejectedAt      sql.NullString
		accountedAt, cancelledAt    sql.NullString
		convertedAt, editedAt       sql.NullString
		supApprovedBy, pmApprovedBy string
		approvedBy, rejectedBy      string
		accountedBy, cancelledBy    string
		convertedBy, editedBy       string
		history, createdAt, updated string
	)

	err := rows.Scan(
		&r.ID, &kind, &r.InternalID, &submittedBy, &createdBy, &supervisor,
		&status, &payment, &hours, &date, &workStart, &workEnd, &dayOff, &r.Reason,
		&supApprovedAt, &supApprovedBy, &finalApproval,
		&pmApprovedAt, &pmApprovedBy,
		&approvedAt, &approvedBy, &rejectedAt, &rejectedBy, &r.RejectionReason,
		&accountedAt, &accountedBy, &cancelledAt, &cancelledBy, &r.CancellationReason,
		&convertedAt, &convertedBy, &editedAt, &editedBy,
		&history, &createdAt, &updated)
	if err != nil {
		return nil, err
	}

	r.Kind = overtime.Kind(kind)
	r.Status = overtime.Status(status)
	if !r.Status.Valid() {
		return nil, fmt.Errorf("corrupt status %q for request %s", status, r.ID)
	}
	r.SubmittedBy = overtime.Identity(submittedBy)
	r.CreatedBy = overtime.Identity(createdBy)
	r.Supervisor = overtime.Identity(supervisor)
	r.Payment = payment != 0
	r.SupervisorFinalApproval = finalApproval != 0
	r.SupervisorApprovedBy = overtime.Identity(supApprovedBy)
	r.PlantManagerApprovedBy = overtime.Identity(pmApprovedBy)
	r.ApprovedBy = overtime.Identity(approvedBy)
	r.RejectedBy = overtime.Identity(rejectedBy)
	r.AccountedBy = overtime.Identity(accountedBy)
	r.CancelledBy = overtime.Identity(cancelledBy)
	r.PayoutConvertedBy = overtime.Identity(convertedBy)
	r.EditedBy = overtime.Identity(editedBy)

	r.Hours, err = decimal.NewFromString(hours)
	if err != nil {
		return nil, fmt.Errorf("corrupt hours value %q: %w", hours, err)
	}

	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{date, &r.Date}, {workStart, &r.WorkStart}, {workEnd, &r.WorkEnd},
		{dayOff, &r.ScheduledDayOff},
		{supApprovedAt, &r.SupervisorApprovedAt},
		{pmApprovedAt, &r.PlantManagerApprovedAt},
		{approvedAt, &r.ApprovedAt}, {rejectedAt, &r.RejectedAt},
		{accountedAt, &r.AccountedAt}, {cancelledAt, &r.CancelledAt},
		{convertedAt, &r.PayoutConvertedAt}, {editedAt, &r.EditedAt},
	} {
		t, err := parseNullTime(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = t
	}

	if err := json.Unmarshal([]byte(history), &r.CorrectionHistory); err != nil {
		return nil, fmt.Errorf("corrupt correction history for %s: %w", r.ID, err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, err
	}
	return &r, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func historyOrEmpty(h []overtime.CorrectionEntry) []overtime.CorrectionEntry {
	if h == nil {
		return []overtime.CorrectionEntry{}
	}
	return h
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
