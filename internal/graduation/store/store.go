package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bmoreira/tesouraria/internal/graduation"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateGraduation(ctx context.Context, g *graduation.Graduation) error {
	query := `
		INSERT INTO graduations (name, year, slug, active, created_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, g.Name, g.Year, g.Slug).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating graduation: %w", err)
	}

	return nil
}

func (s *Store) GetGraduation(ctx context.Context, id uuid.UUID) (*graduation.Graduation, error) {
	query := `SELECT id, name, year, slug, active, created_at FROM graduations WHERE id = $1`

	var g graduation.Graduation

	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&g.ID, &g.Name, &g.Year, &g.Slug, &g.Active, &g.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, graduation.ErrNotFound
		}

		return nil, fmt.Errorf("getting graduation: %w", err)
	}

	return &g, nil
}

func (s *Store) ListGraduations(ctx context.Context) ([]*graduation.Graduation, error) {
	query := `SELECT id, name, year, slug, active, created_at FROM graduations ORDER BY year DESC, name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing graduations: %w", err)
	}
	defer rows.Close()

	var graduations []*graduation.Graduation

	for rows.Next() {
		var g graduation.Graduation

		if err := rows.Scan(&g.ID, &g.Name, &g.Year, &g.Slug, &g.Active, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning graduation: %w", err)
		}

		graduations = append(graduations, &g)
	}

	return graduations, rows.Err()
}

func (s *Store) CreateClass(ctx context.Context, c *graduation.Class) error {
	query := `
		INSERT INTO graduation_classes (graduation_id, name, active, created_at)
		VALUES ($1, $2, TRUE, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, c.GraduationID, c.Name).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating class: %w", err)
	}

	return nil
}

func (s *Store) ListClasses(ctx context.Context, graduationID uuid.UUID) ([]*graduation.Class, error) {
	query := `
		SELECT id, graduation_id, name, active, created_at
		FROM graduation_classes
		WHERE graduation_id = $1
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, graduationID)
	if err != nil {
		return nil, fmt.Errorf("listing classes: %w", err)
	}
	defer rows.Close()

	var classes []*graduation.Class

	for rows.Next() {
		var c graduation.Class

		if err := rows.Scan(&c.ID, &c.GraduationID, &c.Name, &c.Active, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning class: %w", err)
		}

		classes = append(classes, &c)
	}

	return classes, rows.Err()
}

func (s *Store) CreateStudent(ctx context.Context, st *graduation.Student) error {
	query := `
		INSERT INTO graduation_students (class_id, name, guardian, active, created_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query, st.ClassID, st.Name, st.Guardian).Scan(&st.ID, &st.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating student: %w", err)
	}

	return nil
}

func (s *Store) GetStudent(ctx context.Context, id uuid.UUID) (*graduation.Student, error) {
	query := `SELECT id, class_id, name, guardian, active, created_at FROM graduation_students WHERE id = $1`

	var st graduation.Student

	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&st.ID, &st.ClassID, &st.Name, &st.Guardian, &st.Active, &st.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, graduation.ErrNotFound
		}

		return nil, fmt.Errorf("getting student: %w", err)
	}

	return &st, nil
}

func (s *Store) ListActiveStudents(ctx context.Context, classID uuid.UUID) ([]*graduation.Student, error) {
	query := `
		SELECT id, class_id, name, guardian, active, created_at
		FROM graduation_students
		WHERE class_id = $1 AND active
		ORDER BY name ASC
	`

	return s.queryStudents(ctx, query, classID)
}

func (s *Store) ListActiveStudentsByGraduation(ctx context.Context, graduationID uuid.UUID) ([]*graduation.Student, error) {
	query := `
		SELECT st.id, st.class_id, st.name, st.guardian, st.active, st.created_at
		FROM graduation_students st
		JOIN graduation_classes c ON c.id = st.class_id
		WHERE c.graduation_id = $1 AND c.active AND st.active
		ORDER BY st.name ASC
	`

	return s.queryStudents(ctx, query, graduationID)
}

func (s *Store) queryStudents(ctx context.Context, query string, args ...any) ([]*graduation.Student, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}
	defer rows.Close()

	var students []*graduation.Student

	for rows.Next() {
		var st graduation.Student

		if err := rows.Scan(&st.ID, &st.ClassID, &st.Name, &st.Guardian, &st.Active, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning student: %w", err)
		}

		students = append(students, &st)
	}

	return students, rows.Err()
}

// SaveConfig flips the previous current version and inserts the new one in a
// single database transaction, bumping the version counter.
func (s *Store) SaveConfig(ctx context.Context, cfg *graduation.CarnetConfig) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx, `
		UPDATE graduation_carnet_configs SET is_current = FALSE
		WHERE graduation_id = $1 AND is_current
	`, cfg.GraduationID)
	if err != nil {
		return fmt.Errorf("retiring previous config: %w", err)
	}

	query := `
		INSERT INTO graduation_carnet_configs (
			graduation_id, installment_value, installments_count, due_day, start_month,
			version, is_current, created_at
		)
		VALUES (
			$1, $2, $3, $4, $5,
			COALESCE((SELECT MAX(version) FROM graduation_carnet_configs WHERE graduation_id = $1), 0) + 1,
			TRUE, NOW()
		)
		RETURNING id, version, created_at
	`

	err = dbTx.QueryRowContext(ctx, query,
		cfg.GraduationID, cfg.InstallmentValue, cfg.InstallmentsCount, cfg.DueDay, cfg.StartMonth,
	).Scan(&cfg.ID, &cfg.Version, &cfg.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing config: %w", err)
	}

	return nil
}

func (s *Store) GetCurrentConfig(ctx context.Context, graduationID uuid.UUID) (*graduation.CarnetConfig, error) {
	query := `
		SELECT id, graduation_id, installment_value, installments_count, due_day, start_month, version, is_current, created_at
		FROM graduation_carnet_configs
		WHERE graduation_id = $1 AND is_current
	`

	var cfg graduation.CarnetConfig

	err := s.db.QueryRowContext(ctx, query, graduationID).Scan(
		&cfg.ID, &cfg.GraduationID, &cfg.InstallmentValue, &cfg.InstallmentsCount,
		&cfg.DueDay, &cfg.StartMonth, &cfg.Version, &cfg.IsCurrent, &cfg.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, graduation.ErrNoConfig
		}

		return nil, fmt.Errorf("getting current config: %w", err)
	}

	return &cfg, nil
}

const obligationColumns = `student_id, kind, installment_number, reference_label, amount, due_date, status`

// UpsertObligations is one multi-row INSERT ... ON CONFLICT DO NOTHING, so
// concurrent generation calls for the same student converge instead of
// double-inserting. Returns the number of rows actually created.
func (s *Store) UpsertObligations(ctx context.Context, obligations []*graduation.Obligation) (int, error) {
	if len(obligations) == 0 {
		return 0, nil
	}

	var sb strings.Builder

	sb.WriteString(`INSERT INTO graduation_obligations (` + obligationColumns + `, created_at) VALUES `)

	args := make([]any, 0, len(obligations)*7)

	for i, o := range obligations {
		if i > 0 {
			sb.WriteString(", ")
		}

		base := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, NOW())",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)

		args = append(args, o.StudentID, o.Kind, o.InstallmentNumber, o.ReferenceLabel, o.Amount, o.DueDate, o.Status)
	}

	sb.WriteString(" ON CONFLICT DO NOTHING")

	res, err := s.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("upserting obligations: %w", err)
	}

	n, _ := res.RowsAffected()

	return int(n), nil
}

func (s *Store) ReplaceMensalidadeObligations(ctx context.Context, graduationID uuid.UUID, fresh []*graduation.Obligation) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	deleteQuery := `
		DELETE FROM graduation_obligations o
		USING graduation_students st, graduation_classes c
		WHERE o.student_id = st.id
		  AND st.class_id = c.id
		  AND c.graduation_id = $1
		  AND o.kind = $2
	`

	if _, err := dbTx.ExecContext(ctx, deleteQuery, graduationID, graduation.KindMensalidade); err != nil {
		return fmt.Errorf("deleting mensalidade obligations: %w", err)
	}

	insertQuery := `
		INSERT INTO graduation_obligations (` + obligationColumns + `, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	for _, o := range fresh {
		err := dbTx.QueryRowContext(ctx, insertQuery,
			o.StudentID, o.Kind, o.InstallmentNumber, o.ReferenceLabel, o.Amount, o.DueDate, o.Status,
		).Scan(&o.ID, &o.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting obligation: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) ListObligations(ctx context.Context, filter graduation.ObligationFilter) ([]*graduation.Obligation, error) {
	query := `
		SELECT o.id, o.student_id, o.kind, o.installment_number, o.reference_label,
		       o.amount, o.due_date, o.status, o.paid_at, o.received_by, o.created_at
		FROM graduation_obligations o
	`

	var conds []string

	var args []any

	if filter.ClassID != nil {
		query += " JOIN graduation_students st ON st.id = o.student_id"

		args = append(args, *filter.ClassID)
		conds = append(conds, fmt.Sprintf("st.class_id = $%d", len(args)))
	}

	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		conds = append(conds, fmt.Sprintf("o.student_id = $%d", len(args)))
	}

	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		conds = append(conds, fmt.Sprintf("o.kind = $%d", len(args)))
	}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("o.status = $%d", len(args)))
	}

	if filter.ReferenceLabel != nil {
		args = append(args, *filter.ReferenceLabel)
		conds = append(conds, fmt.Sprintf("o.reference_label = $%d", len(args)))
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY o.due_date ASC, o.reference_label ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing obligations: %w", err)
	}
	defer rows.Close()

	var obligations []*graduation.Obligation

	for rows.Next() {
		var o graduation.Obligation

		var kindStr, statusStr string

		var receivedBy sql.NullString

		if err := rows.Scan(
			&o.ID, &o.StudentID, &kindStr, &o.InstallmentNumber, &o.ReferenceLabel,
			&o.Amount, &o.DueDate, &statusStr, &o.PaidAt, &receivedBy, &o.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning obligation: %w", err)
		}

		o.Kind = graduation.ObligationKind(kindStr)
		o.Status = graduation.ObligationStatus(statusStr)
		o.ReceivedBy = receivedBy.String

		obligations = append(obligations, &o)
	}

	return obligations, rows.Err()
}

// MarkObligationsPaid flips EM_ABERTO rows only; the status predicate keeps
// already-settled rows out of the update.
func (s *Store) MarkObligationsPaid(ctx context.Context, classID uuid.UUID, label string, studentIDs []uuid.UUID, paidAt time.Time, receivedBy string) (int64, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}

	args := []any{graduation.StatusPago, paidAt, receivedBy, classID, label, graduation.StatusEmAberto}

	placeholders := make([]string, 0, len(studentIDs))
	for _, id := range studentIDs {
		args = append(args, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf(`
		UPDATE graduation_obligations o
		SET status = $1, paid_at = $2, received_by = $3
		FROM graduation_students st
		WHERE o.student_id = st.id
		  AND st.class_id = $4
		  AND o.reference_label = $5
		  AND o.status = $6
		  AND o.student_id IN (%s)
	`, strings.Join(placeholders, ", "))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("marking obligations paid: %w", err)
	}

	n, _ := res.RowsAffected()

	return n, nil
}

func (s *Store) AddEntry(ctx context.Context, e *graduation.Entry) error {
	query := `
		INSERT INTO graduation_fin_entries (graduation_id, class_id, entry_type, rail, amount, entry_date, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		e.GraduationID, e.ClassID, e.Type, e.Rail, e.Amount, e.Date, e.Description,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("adding entry: %w", err)
	}

	return nil
}

func (s *Store) AddExpense(ctx context.Context, e *graduation.Expense) error {
	query := `
		INSERT INTO graduation_fin_expenses (graduation_id, rail, amount, expense_date, description, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		e.GraduationID, e.Rail, e.Amount, e.Date, e.Description,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("adding expense: %w", err)
	}

	return nil
}

func (s *Store) AddTransfer(ctx context.Context, t *graduation.Transfer) error {
	query := `
		INSERT INTO graduation_fin_transfers (graduation_id, from_rail, to_rail, amount, transfer_date, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		t.GraduationID, t.FromRail, t.ToRail, t.Amount, t.Date, t.Description,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("adding transfer: %w", err)
	}

	return nil
}

func (s *Store) AddAdjustment(ctx context.Context, a *graduation.Adjustment) error {
	query := `
		INSERT INTO graduation_fin_adjustments (graduation_id, rail, amount, adjustment_date, description, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		a.GraduationID, a.Rail, a.Amount, a.Date, a.Description,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("adding adjustment: %w", err)
	}

	return nil
}

func (s *Store) SummaryTotals(ctx context.Context, graduationID uuid.UUID) (*graduation.SummaryTotals, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(amount) FROM graduation_fin_entries WHERE graduation_id = $1 AND rail = 'pix'), 0),
			COALESCE((SELECT SUM(amount) FROM graduation_fin_entries WHERE graduation_id = $1 AND rail = 'cash'), 0),
			COALESCE((SELECT SUM(amount) FROM graduation_fin_expenses WHERE graduation_id = $1 AND rail = 'pix'), 0),
			COALESCE((SELECT SUM(amount) FROM graduation_fin_expenses WHERE graduation_id = $1 AND rail = 'cash'), 0),
			COALESCE((SELECT SUM(amount) FROM graduation_fin_transfers WHERE graduation_id = $1 AND from_rail = 'pix'), 0),
			COALESCE((SELECT SUM(amount) FROM graduation_fin_transfers WHERE graduation_id = $1 AND from_rail = 'cash'), 0),
			COALESCE((SELECT SUM(amount) FROM graduation_fin_adjustments WHERE graduation_id = $1 AND rail = 'pix'), 0),
			COALESCE((SELECT SUM(amount) FROM graduation_fin_adjustments WHERE graduation_id = $1 AND rail = 'cash'), 0),
			COALESCE((SELECT SUM(amount) FROM graduation_fin_entries WHERE graduation_id = $1 AND entry_type = $2), 0),
			COALESCE((SELECT SUM(o.amount) FROM graduation_obligations o
				JOIN graduation_students st ON st.id = o.student_id
				JOIN graduation_classes c ON c.id = st.class_id
				WHERE c.graduation_id = $1 AND o.status = $3), 0),
			COALESCE((SELECT SUM(o.amount) FROM graduation_obligations o
				JOIN graduation_students st ON st.id = o.student_id
				JOIN graduation_classes c ON c.id = st.class_id
				WHERE c.graduation_id = $1 AND o.status = $4), 0)
	`

	var t graduation.SummaryTotals

	err := s.db.QueryRowContext(ctx, query,
		graduationID, graduation.EntryMensalidade, graduation.StatusPago, graduation.StatusEmAberto,
	).Scan(
		&t.PixIn, &t.CashIn, &t.PixOut, &t.CashOut,
		&t.TransfersPixToCash, &t.TransfersCashToPix,
		&t.AdjustmentsPix, &t.AdjustmentsCash,
		&t.MensalidadeEntries, &t.ObligationsPaid, &t.ObligationsOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("computing summary totals: %w", err)
	}

	return &t, nil
}
