package jobs

import (
	"context"

	"go.uber.org/zap"
)

// AuditCleanupJobName is the name of the audit retention job
const AuditCleanupJobName = "audit_cleanup"

// AuditPruner deletes audit entries older than the retention window
type AuditPruner interface {
	CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error)
}

// AuditCleanupJob enforces the audit log retention window
type AuditCleanupJob struct {
	pruner        AuditPruner
	retentionDays int
	logger        *zap.Logger
}

// NewAuditCleanupJob creates a new audit retention job
func NewAuditCleanupJob(pruner AuditPruner, retentionDays int, logger *zap.Logger) *AuditCleanupJob {
	return &AuditCleanupJob{pruner: pruner, retentionDays: retentionDays, logger: logger}
}

func (j *AuditCleanupJob) Name() string { return AuditCleanupJobName }

// Run deletes expired audit entries
func (j *AuditCleanupJob) Run(ctx context.Context) error {
	deleted, err := j.pruner.CleanupOldLogs(ctx, j.retentionDays)
	if err != nil {
		return err
	}
	j.logger.Info("audit log cleanup finished",
		zap.Int64("deleted", deleted),
		zap.Int("retention_days", j.retentionDays))
	return nil
}
