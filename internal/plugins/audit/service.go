package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inkwellapp/inkwell/internal/apperror"
)

// defaultFeedLimit is the number of entries returned by the activity feed.
const defaultFeedLimit = 50

// maxFeedLimit caps the feed size to prevent unbounded result sets.
const maxFeedLimit = 200

// AuditService handles business logic for the audit log.
type AuditService interface {
	// Log records an audit entry. Designed to be fire-and-forget friendly:
	// errors are logged but callers may choose to ignore them since audit
	// failures should not block the primary operation.
	Log(ctx context.Context, entry *AuditEntry) error

	// ListRecent returns the newest audit entries. A limit of 0 uses the
	// default; values above the cap are clamped.
	ListRecent(ctx context.Context, limit int) ([]AuditEntry, error)
}

type auditService struct {
	repo AuditRepository
}

// NewAuditService creates a new audit service with the given repository.
func NewAuditService(repo AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// Log validates and persists an audit entry. Logging failures are recorded
// via slog so the caller can treat this as fire-and-forget.
func (s *auditService) Log(ctx context.Context, entry *AuditEntry) error {
	if entry.UserID == 0 {
		return apperror.NewBadRequest("user ID is required for audit entry")
	}
	if entry.Action == "" {
		return apperror.NewBadRequest("action is required for audit entry")
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		slog.Error("failed to write audit log entry",
			slog.String("action", entry.Action),
			slog.Int64("user_id", entry.UserID),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("writing audit entry: %w", err))
	}
	return nil
}

func (s *auditService) ListRecent(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	entries, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing audit entries: %w", err))
	}
	return entries, nil
}
