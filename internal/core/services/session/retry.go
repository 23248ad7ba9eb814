package session

import (
	"context"
	"encoding/json"
	"fmt"

	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

func (m *Manager) RetryPendingSubmissions(ctx context.Context) (int, error) {
	pending, err := m.outbox.GetPending(ctx, m.cfg.SubmitRetryBatch, m.clock.Now().Add(-m.cfg.SubmitRetryBackoff))
	if err != nil {
		return 0, fmt.Errorf("failed to get pending submissions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	m.logger.Debug("Retrying pending submissions", "count", len(pending))

	delivered := 0
	for _, row := range pending {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}

		var payload domain.SubmissionPayload
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			m.logger.Error("Undecodable pending submission", "submissionId", row.SubmissionID, "error", err)
			_ = m.outbox.MarkAttemptFailed(ctx, row.SubmissionID, err.Error())
			continue
		}

		if err := m.backend.Submit(ctx, &payload); err != nil {
			m.logger.Warn("Submission retry failed",
				"submissionId", row.SubmissionID,
				"retryCount", row.RetryCount+1,
				"error", err)
			if merr := m.outbox.MarkAttemptFailed(ctx, row.SubmissionID, err.Error()); merr != nil {
				m.logger.Error("Failed to record retry failure", "submissionId", row.SubmissionID, "error", merr)
			}
			continue
		}

		if err := m.outbox.MarkDelivered(ctx, row.SubmissionID); err != nil {
			m.logger.Error("Failed to mark submission delivered", "submissionId", row.SubmissionID, "error", err)
		}
		m.acknowledgeDelivered(ctx, &payload)
		delivered++
	}
	return delivered, nil
}

// acknowledgeDelivered tombstones the local state if it still holds the
// delivered submission
func (m *Manager) acknowledgeDelivered(ctx context.Context, payload *domain.SubmissionPayload) {
	key := domain.AttemptKey{ActivityID: payload.ActivityID, UserID: payload.UserID}
	unlock := m.locks.Lock(key.String())
	defer unlock()

	state, err := m.store.Get(ctx, key)
	if err != nil || state == nil {
		return
	}
	if state.IsTombstone() || state.Submission == nil || state.Submission.SubmissionID != payload.SubmissionID {
		return
	}
	if err := m.acknowledge(ctx, state, m.clock.Now()); err != nil {
		m.logger.Warn("Failed to tombstone delivered attempt", "attempt", key.String(), "error", err)
	}
}

func (m *Manager) PurgeDeliveredSubmissions(ctx context.Context) (int64, error) {
	purged, err := m.outbox.PurgeDelivered(ctx, m.clock.Now().Add(-m.cfg.AttemptRetention))
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		m.logger.Debug("Purged delivered submissions", "count", purged)
	}
	return purged, nil
}
