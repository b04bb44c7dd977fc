package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

const transactionColumns = `
	id, shift_id, assignment_id, worker_id, business_id, agency_id, currency,
	amount_gross, platform_fee, agency_fee, amount_net, contingency_buffer, escrow_hold,
	worker_adjustment, business_refund, status, disputed,
	escrow_held_at, released_at, payout_initiated_at, payout_completed_at, flagged_for_review_at,
	version, created_at, updated_at`

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

// Create inserts the escrow transaction; the partial unique index enforces one live escrow per assignment
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO escrow_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, 1, $23, $24)
	`

	_, err := r.db.querier(ctx).ExecContext(ctx, query,
		tx.ID,
		tx.ShiftID,
		tx.AssignmentID,
		tx.WorkerID,
		tx.BusinessID,
		nullableUUID(tx.AgencyID),
		string(tx.Currency()),
		tx.AmountGross.MinorUnits(),
		tx.PlatformFee.MinorUnits(),
		tx.AgencyFee.MinorUnits(),
		tx.AmountNet.MinorUnits(),
		tx.ContingencyBuffer.MinorUnits(),
		tx.EscrowHold.MinorUnits(),
		tx.WorkerAdjustment.MinorUnits(),
		tx.BusinessRefund.MinorUnits(),
		string(tx.Status),
		tx.Disputed,
		nullableTime(tx.EscrowHeldAt),
		nullableTime(tx.ReleasedAt),
		nullableTime(tx.PayoutInitiatedAt),
		nullableTime(tx.PayoutCompletedAt),
		nullableTime(tx.FlaggedForReviewAt),
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("an active transaction already exists for assignment %s", tx.AssignmentID)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	tx.Version = 1
	return nil
}

// GetByID retrieves a transaction by its ID
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.getOne(ctx, `SELECT `+transactionColumns+` FROM escrow_transactions WHERE id = $1`, id)
}

// GetForUpdate locks the row until the surrounding transaction ends
func (r *transactionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return r.getOne(ctx, `SELECT `+transactionColumns+` FROM escrow_transactions WHERE id = $1 FOR UPDATE`, id)
}

// FindActiveByAssignment returns the live escrow of an assignment
func (r *transactionRepository) FindActiveByAssignment(ctx context.Context, assignmentID uuid.UUID) (*domain.Transaction, error) {
	tx, err := r.getOne(ctx, `
		SELECT `+transactionColumns+`
		FROM escrow_transactions
		WHERE assignment_id = $1 AND status NOT IN ('paid_out', 'failed')
	`, assignmentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewNotFoundError("no active transaction for assignment")
	}
	return tx, err
}

// Update writes the mutable columns guarded by the version the caller read
func (r *transactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE escrow_transactions SET
			worker_adjustment = $3,
			business_refund = $4,
			status = $5,
			disputed = $6,
			escrow_held_at = $7,
			released_at = $8,
			payout_initiated_at = $9,
			payout_completed_at = $10,
			flagged_for_review_at = $11,
			updated_at = $12,
			version = version + 1
		WHERE id = $1 AND version = $2
	`

	res, err := r.db.querier(ctx).ExecContext(ctx, query,
		tx.ID,
		tx.Version,
		tx.WorkerAdjustment.MinorUnits(),
		tx.BusinessRefund.MinorUnits(),
		string(tx.Status),
		tx.Disputed,
		nullableTime(tx.EscrowHeldAt),
		nullableTime(tx.ReleasedAt),
		nullableTime(tx.PayoutInitiatedAt),
		nullableTime(tx.PayoutCompletedAt),
		nullableTime(tx.FlaggedForReviewAt),
		tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, tx.ID); err != nil {
			return err
		}
		return domain.NewConflictError("The transaction was modified by another request")
	}

	tx.Version++
	return nil
}

// ListOverdueHolds returns unflagged in_escrow holds older than cutoff, newest first
func (r *transactionRepository) ListOverdueHolds(ctx context.Context, cutoff time.Time) ([]*domain.Transaction, error) {
	return r.getMany(ctx, `
		SELECT `+transactionColumns+`
		FROM escrow_transactions
		WHERE status = 'in_escrow' AND flagged_for_review_at IS NULL AND escrow_held_at < $1
		ORDER BY created_at DESC, id
	`, cutoff)
}

// List retrieves a paginated list of transactions, newest first
func (r *transactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.WorkerID != nil {
		args = append(args, *filter.WorkerID)
		where = append(where, fmt.Sprintf("worker_id = $%d", len(args)))
	}
	if filter.BusinessID != nil {
		args = append(args, *filter.BusinessID)
		where = append(where, fmt.Sprintf("business_id = $%d", len(args)))
	}

	query := `SELECT ` + transactionColumns + ` FROM escrow_transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	return r.getMany(ctx, query, args...)
}

// CountByStatus returns the number of transactions per status
func (r *transactionRepository) CountByStatus(ctx context.Context) (map[domain.TransactionStatus]int, error) {
	rows, err := r.db.querier(ctx).QueryContext(ctx, `SELECT status, COUNT(*) FROM escrow_transactions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TransactionStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan transaction count: %w", err)
		}
		counts[domain.TransactionStatus(status)] = n
	}
	return counts, rows.Err()
}

// HeldTotals sums escrow holds still in custody per currency
func (r *transactionRepository) HeldTotals(ctx context.Context) (map[domain.Currency]domain.Money, error) {
	rows, err := r.db.querier(ctx).QueryContext(ctx, `
		SELECT currency, COALESCE(SUM(escrow_hold), 0)
		FROM escrow_transactions
		WHERE status IN ('in_escrow', 'released', 'disputed')
		GROUP BY currency
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to sum escrow holds: %w", err)
	}
	defer rows.Close()

	totals := make(map[domain.Currency]domain.Money)
	for rows.Next() {
		var currency string
		var minor int64
		if err := rows.Scan(&currency, &minor); err != nil {
			return nil, fmt.Errorf("failed to scan escrow hold total: %w", err)
		}
		c := domain.Currency(currency)
		totals[c] = money(minor, c)
	}
	return totals, rows.Err()
}

func (r *transactionRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Transaction, error) {
	tx, err := scanTransaction(r.db.querier(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("transaction not found")
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

func (r *transactionRepository) getMany(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var agencyID sql.NullString
	var currency, status string
	var gross, platform, agency, net, buffer, hold, adjustment, refund int64
	var heldAt, releasedAt, initiatedAt, completedAt, flaggedAt sql.NullTime

	err := row.Scan(
		&tx.ID, &tx.ShiftID, &tx.AssignmentID, &tx.WorkerID, &tx.BusinessID, &agencyID, &currency,
		&gross, &platform, &agency, &net, &buffer, &hold,
		&adjustment, &refund, &status, &tx.Disputed,
		&heldAt, &releasedAt, &initiatedAt, &completedAt, &flaggedAt,
		&tx.Version, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tx.AgencyID, err = scanUUID(agencyID); err != nil {
		return nil, fmt.Errorf("failed to parse agency_id: %w", err)
	}

	c := domain.Currency(strings.TrimSpace(currency))
	tx.AmountGross = money(gross, c)
	tx.PlatformFee = money(platform, c)
	tx.AgencyFee = money(agency, c)
	tx.AmountNet = money(net, c)
	tx.ContingencyBuffer = money(buffer, c)
	tx.EscrowHold = money(hold, c)
	tx.WorkerAdjustment = money(adjustment, c)
	tx.BusinessRefund = money(refund, c)
	tx.Status = domain.TransactionStatus(status)

	tx.EscrowHeldAt = scanTime(heldAt)
	tx.ReleasedAt = scanTime(releasedAt)
	tx.PayoutInitiatedAt = scanTime(initiatedAt)
	tx.PayoutCompletedAt = scanTime(completedAt)
	tx.FlaggedForReviewAt = scanTime(flaggedAt)
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.UpdatedAt = tx.UpdatedAt.UTC()

	return &tx, nil
}

// paginate appends LIMIT and OFFSET placeholders
func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
