package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

const disputeColumns = `
	id, shift_id, worker_id, business_id, transaction_id, type, currency, disputed_amount,
	worker_description, business_response, evidence_worker, evidence_business,
	status, resolution, resolution_amount, resolution_notes, assigned_to,
	evidence_deadline, resolved_at, version, created_at, updated_at`

// disputeRepository implements domain.DisputeRepository
type disputeRepository struct {
	db *DB
}

// NewDisputeRepository creates a new dispute repository
func NewDisputeRepository(db *DB) domain.DisputeRepository {
	return &disputeRepository{db: db}
}

// Create inserts the dispute; the partial unique index enforces one live dispute per transaction
func (r *disputeRepository) Create(ctx context.Context, d *domain.Dispute) error {
	query := `
		INSERT INTO disputes (` + disputeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 1, $20, $21)
	`

	_, err := r.db.querier(ctx).ExecContext(ctx, query,
		d.ID,
		d.ShiftID,
		d.WorkerID,
		d.BusinessID,
		d.TransactionID,
		string(d.Type),
		string(d.DisputedAmount.Currency()),
		d.DisputedAmount.MinorUnits(),
		d.WorkerDescription,
		d.BusinessResponse,
		pq.Array(nonNil(d.EvidenceWorker)),
		pq.Array(nonNil(d.EvidenceBusiness)),
		string(d.Status),
		string(d.Resolution),
		resolutionAmount(d.ResolutionAmount),
		d.ResolutionNotes,
		nullableUUID(d.AssignedTo),
		d.EvidenceDeadline,
		nullableTime(d.ResolvedAt),
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("An active dispute already exists for this transaction")
		}
		return fmt.Errorf("failed to insert dispute: %w", err)
	}

	d.Version = 1
	return nil
}

// GetByID retrieves a dispute by its ID
func (r *disputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Dispute, error) {
	return r.getOne(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
}

// GetForUpdate locks the row until the surrounding transaction ends
func (r *disputeRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Dispute, error) {
	return r.getOne(ctx, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, id)
}

// FindActiveByTransaction returns the live dispute of a transaction
func (r *disputeRepository) FindActiveByTransaction(ctx context.Context, transactionID uuid.UUID) (*domain.Dispute, error) {
	d, err := r.getOne(ctx, `
		SELECT `+disputeColumns+`
		FROM disputes
		WHERE transaction_id = $1 AND status NOT IN ('resolved', 'closed')
	`, transactionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewNotFoundError("no active dispute for transaction")
	}
	return d, err
}

// Update writes the mutable columns guarded by the version the caller read
func (r *disputeRepository) Update(ctx context.Context, d *domain.Dispute) error {
	query := `
		UPDATE disputes SET
			business_response = $3,
			evidence_worker = $4,
			evidence_business = $5,
			status = $6,
			resolution = $7,
			resolution_amount = $8,
			resolution_notes = $9,
			assigned_to = $10,
			resolved_at = $11,
			updated_at = $12,
			version = version + 1
		WHERE id = $1 AND version = $2
	`

	res, err := r.db.querier(ctx).ExecContext(ctx, query,
		d.ID,
		d.Version,
		d.BusinessResponse,
		pq.Array(nonNil(d.EvidenceWorker)),
		pq.Array(nonNil(d.EvidenceBusiness)),
		string(d.Status),
		string(d.Resolution),
		resolutionAmount(d.ResolutionAmount),
		d.ResolutionNotes,
		nullableUUID(d.AssignedTo),
		nullableTime(d.ResolvedAt),
		d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update dispute: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, d.ID); err != nil {
			return err
		}
		return domain.NewConflictError("The dispute was modified by another request")
	}

	d.Version++
	return nil
}

// ListStale returns disputes outside mediation with no update since cutoff, oldest first
func (r *disputeRepository) ListStale(ctx context.Context, cutoff time.Time) ([]*domain.Dispute, error) {
	return r.getMany(ctx, `
		SELECT `+disputeColumns+`
		FROM disputes
		WHERE status IN ('open', 'under_review', 'escalated') AND updated_at < $1
		ORDER BY created_at, id
	`, cutoff)
}

// List retrieves a paginated list of disputes, oldest first
func (r *disputeRepository) List(ctx context.Context, filter domain.DisputeFilter) ([]*domain.Dispute, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.TransactionID != nil {
		args = append(args, *filter.TransactionID)
		where = append(where, fmt.Sprintf("transaction_id = $%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		where = append(where, fmt.Sprintf("assigned_to = $%d", len(args)))
	}

	query := `SELECT ` + disputeColumns + ` FROM disputes`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	return r.getMany(ctx, query, args...)
}

// CountByStatus returns the number of disputes per status
func (r *disputeRepository) CountByStatus(ctx context.Context) (map[domain.DisputeStatus]int, error) {
	counts := make(map[domain.DisputeStatus]int)
	err := r.count(ctx, "status", func(key string, n int) {
		counts[domain.DisputeStatus(key)] = n
	})
	return counts, err
}

// CountByType returns the number of disputes per type
func (r *disputeRepository) CountByType(ctx context.Context) (map[domain.DisputeType]int, error) {
	counts := make(map[domain.DisputeType]int)
	err := r.count(ctx, "type", func(key string, n int) {
		counts[domain.DisputeType(key)] = n
	})
	return counts, err
}

// count groups disputes by a trusted column name
func (r *disputeRepository) count(ctx context.Context, column string, add func(key string, n int)) error {
	rows, err := r.db.querier(ctx).QueryContext(ctx, `SELECT `+column+`, COUNT(*) FROM disputes GROUP BY `+column)
	if err != nil {
		return fmt.Errorf("failed to count disputes by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan dispute count: %w", err)
		}
		add(key, n)
	}
	return rows.Err()
}

func (r *disputeRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Dispute, error) {
	d, err := scanDispute(r.db.querier(ctx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFoundError("dispute not found")
		}
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return d, nil
}

func (r *disputeRepository) getMany(ctx context.Context, query string, args ...any) ([]*domain.Dispute, error) {
	rows, err := r.db.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query disputes: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Dispute, 0)
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dispute: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating disputes: %w", err)
	}
	return out, nil
}

func scanDispute(row rowScanner) (*domain.Dispute, error) {
	var d domain.Dispute
	var disputeType, currency, status, resolution string
	var amount int64
	var response sql.NullString
	var evidenceWorker, evidenceBusiness pq.StringArray
	var resolved sql.NullInt64
	var assignedTo sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(
		&d.ID, &d.ShiftID, &d.WorkerID, &d.BusinessID, &d.TransactionID, &disputeType, &currency, &amount,
		&d.WorkerDescription, &response, &evidenceWorker, &evidenceBusiness,
		&status, &resolution, &resolved, &d.ResolutionNotes, &assignedTo,
		&d.EvidenceDeadline, &resolvedAt, &d.Version, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c := domain.Currency(strings.TrimSpace(currency))
	d.Type = domain.DisputeType(disputeType)
	d.Status = domain.DisputeStatus(status)
	d.Resolution = domain.Resolution(resolution)
	d.DisputedAmount = money(amount, c)
	if response.Valid {
		d.BusinessResponse = &response.String
	}
	d.EvidenceWorker = []string(evidenceWorker)
	d.EvidenceBusiness = []string(evidenceBusiness)
	if resolved.Valid {
		m := money(resolved.Int64, c)
		d.ResolutionAmount = &m
	}
	if d.AssignedTo, err = scanUUID(assignedTo); err != nil {
		return nil, fmt.Errorf("failed to parse assigned_to: %w", err)
	}
	d.ResolvedAt = scanTime(resolvedAt)
	d.EvidenceDeadline = d.EvidenceDeadline.UTC()
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()

	return &d, nil
}

func resolutionAmount(m *domain.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.MinorUnits(), Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
