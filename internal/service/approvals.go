package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Guizzs26/go-sync-hr/internal/models"
)

var ErrNotAwaitingApproval = errors.New("import log is not awaiting approval")

// ApprovalService resolves runs parked by the structure check.
type ApprovalService struct {
	logs      ImportLogStore
	snapshots SnapshotStore
	logger    *slog.Logger
}

func NewApprovalService(logs ImportLogStore, snapshots SnapshotStore, l *slog.Logger) *ApprovalService {
	return &ApprovalService{logs: logs, snapshots: snapshots, logger: l}
}

func (s *ApprovalService) Pending(ctx context.Context) ([]models.ImportLog, error) {
	return s.logs.ListImportLogs(ctx, []models.ImportStatus{models.StatusAwaitingApproval}, 50)
}

// Approve accepts the observed layouts as the new snapshots and completes
// the log, which releases the ingestion mutex. The next run then passes
// the structure check.
func (s *ApprovalService) Approve(ctx context.Context, id int64, approvedBy string) (models.ImportLog, error) {
	log, err := s.awaiting(ctx, id)
	if err != nil {
		return log, err
	}

	for _, d := range log.StructuralDiff {
		snap := models.FileStructureSnapshot{
			Filename:   d.Filename,
			DomainType: d.DomainType,
			Columns:    d.Columns,
			RowCount:   d.RowCount,
		}
		if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
			return log, fmt.Errorf("accept layout of %s: %w", d.Filename, err)
		}
	}

	err = s.logs.TransitionImportLog(ctx, id, models.StatusAwaitingApproval, models.StatusCompleted, models.ImportLogUpdate{
		ApprovedBy: approvedBy,
		Resolve:    true,
	})
	if errors.Is(err, models.ErrStatusConflict) {
		return log, ErrNotAwaitingApproval
	}
	if err != nil {
		return log, err
	}

	s.logger.Info("Structure change approved", "import_log_id", id, "approved_by", approvedBy, "files", len(log.StructuralDiff))
	return s.logs.GetImportLog(ctx, id)
}

// Reject fails the log and leaves the snapshots untouched.
func (s *ApprovalService) Reject(ctx context.Context, id int64, rejectedBy, reason string) (models.ImportLog, error) {
	log, err := s.awaiting(ctx, id)
	if err != nil {
		return log, err
	}

	msg := "structure change rejected"
	if r := strings.TrimSpace(reason); r != "" {
		msg += ": " + r
	}
	err = s.logs.TransitionImportLog(ctx, id, models.StatusAwaitingApproval, models.StatusFailed, models.ImportLogUpdate{
		ApprovedBy:   rejectedBy,
		ErrorMessage: msg,
		Resolve:      true,
	})
	if errors.Is(err, models.ErrStatusConflict) {
		return log, ErrNotAwaitingApproval
	}
	if err != nil {
		return log, err
	}

	s.logger.Info("Structure change rejected", "import_log_id", id, "rejected_by", rejectedBy)
	return s.logs.GetImportLog(ctx, id)
}

func (s *ApprovalService) awaiting(ctx context.Context, id int64) (models.ImportLog, error) {
	log, err := s.logs.GetImportLog(ctx, id)
	if err != nil {
		return log, err
	}
	if log.Status != models.StatusAwaitingApproval {
		return log, fmt.Errorf("%w: log %d is %s", ErrNotAwaitingApproval, id, log.Status)
	}
	return log, nil
}
