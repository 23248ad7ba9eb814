// Package submissionoutbox keeps undelivered submissions in PostgreSQL
package submissionoutbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	querybuilder "gitlab.com/fcv-2025.net/assessment/internal/utils"
)

var _ secondary.SubmissionOutbox = (*OutboxRepository)(nil)

const schema = "public"

// OutboxRepository implements the SubmissionOutbox interface with PostgreSQL
type OutboxRepository struct {
	db     *sqlx.DB
	logger primary.Logger
	now    func() time.Time
}

// NewOutboxRepository creates a new PostgreSQL outbox repository
func NewOutboxRepository(db *sqlx.DB, logger primary.Logger) *OutboxRepository {
	return &OutboxRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Enqueue stores the payload as PENDING. A row with the same submission id
// is left as is.
func (r *OutboxRepository) Enqueue(ctx context.Context, payload *domain.SubmissionPayload, retryLimit int) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("Failed to marshal submission payload", "error", err)
		return fmt.Errorf("failed to marshal submission payload: %w", err)
	}

	tbl := domain.GetPendingSubmissionsTable()
	now := r.now()
	query, args := querybuilder.NewQueryBuilder(schema).
		Insert(
			tbl.SubmissionID,
			tbl.ActivityID,
			tbl.UserID,
			tbl.Payload,
			tbl.Status,
			tbl.RetryCount,
			tbl.RetryLimit,
			tbl.CreatedAt,
			tbl.UpdatedAt,
		).
		Into(tbl.GetTableName()).
		Values(
			payload.SubmissionID,
			payload.ActivityID,
			payload.UserID,
			payloadJSON,
			domain.SubmissionStatusPending,
			0,
			retryLimit,
			now,
			now,
		).
		OnConflict(tbl.SubmissionID).
		DoNothing().
		Build()

	if _, err := r.db.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		r.logger.Error("Failed to enqueue submission", "submissionId", payload.SubmissionID, "error", err)
		return fmt.Errorf("failed to enqueue submission: %w", err)
	}
	return nil
}

// GetPending returns the oldest PENDING rows first. Rows that already failed
// wait until retryBefore.
func (r *OutboxRepository) GetPending(ctx context.Context, limit int, retryBefore time.Time) ([]*domain.PendingSubmission, error) {
	tbl := domain.GetPendingSubmissionsTable()
	query, args := querybuilder.NewQueryBuilder(schema).
		Select(
			tbl.SubmissionID,
			tbl.ActivityID,
			tbl.UserID,
			tbl.Payload,
			tbl.Status,
			tbl.RetryCount,
			tbl.RetryLimit,
			tbl.LastError,
			tbl.CreatedAt,
			tbl.UpdatedAt,
			tbl.DeliveredAt,
		).
		From(tbl.GetTableName()).
		Where(fmt.Sprintf("%s = ?", tbl.Status), domain.SubmissionStatusPending).
		AndGroup(func(qb querybuilder.QueryBuilder) {
			qb.Where(fmt.Sprintf("%s = ?", tbl.RetryCount), 0).
				Or(fmt.Sprintf("%s < ?", tbl.UpdatedAt), retryBefore)
		}).
		OrderBy(tbl.CreatedAt, true).
		Limit(limit).
		Build()

	var rows []*domain.PendingSubmission
	if err := r.db.SelectContext(ctx, &rows, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		r.logger.Error("Failed to get pending submissions", "error", err)
		return nil, fmt.Errorf("failed to get pending submissions: %w", err)
	}
	return rows, nil
}

func (r *OutboxRepository) MarkDelivered(ctx context.Context, submissionID uuid.UUID) error {
	tbl := domain.GetPendingSubmissionsTable()
	now := r.now()
	query, args := querybuilder.NewQueryBuilder(schema).
		Update(tbl.GetTableName(), querybuilder.UpdateData{
			tbl.Status:      domain.SubmissionStatusDelivered,
			tbl.DeliveredAt: now,
			tbl.UpdatedAt:   now,
		}).
		Where(fmt.Sprintf("%s = ?", tbl.SubmissionID), submissionID).
		Build()

	if _, err := r.db.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return fmt.Errorf("failed to mark submission delivered: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkAttemptFailed(ctx context.Context, submissionID uuid.UUID, cause string) error {
	query := `
		UPDATE public.pending_submissions SET
			retry_count = retry_count + 1,
			last_error = $2,
			updated_at = $3,
			status = CASE WHEN retry_count + 1 >= retry_limit THEN $4 ELSE status END
		WHERE submission_id = $1 AND status = $5
	`
	_, err := r.db.ExecContext(ctx, query,
		submissionID,
		cause,
		r.now(),
		domain.SubmissionStatusFailed,
		domain.SubmissionStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to record submission failure: %w", err)
	}
	return nil
}

func (r *OutboxRepository) PurgeDelivered(ctx context.Context, before time.Time) (int64, error) {
	tbl := domain.GetPendingSubmissionsTable()
	query, args := querybuilder.NewQueryBuilder(schema).
		Delete(tbl.GetTableName()).
		Where(fmt.Sprintf("%s = ?", tbl.Status), domain.SubmissionStatusDelivered).
		And(fmt.Sprintf("%s < ?", tbl.UpdatedAt), before).
		Build()

	res, err := r.db.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge delivered submissions: %w", err)
	}
	return res.RowsAffected()
}
