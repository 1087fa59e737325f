package jobs

import (
	"context"
	"fmt"

	"github.com/straye-as/kosthorys-api/internal/ledger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReconcileJobName is the name of the ledger reconciliation job
const ReconcileJobName = "ledger_reconcile"

// ReconcileJob recomputes specification remainders and contract used amounts
// from the posted documents and reports (or repairs) any drift.
type ReconcileJob struct {
	db     *gorm.DB
	repair bool
	logger *zap.Logger
}

// NewReconcileJob creates a new reconciliation job
func NewReconcileJob(db *gorm.DB, repair bool, logger *zap.Logger) *ReconcileJob {
	return &ReconcileJob{db: db, repair: repair, logger: logger}
}

func (j *ReconcileJob) Name() string { return ReconcileJobName }

// Run executes one reconciliation pass
func (j *ReconcileJob) Run(ctx context.Context) error {
	result, err := ledger.Reconcile(ctx, j.db, j.repair)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	for _, d := range result.Drifts {
		j.logger.Warn("ledger drift detected",
			zap.String("kind", d.Kind),
			zap.String("id", d.ID.String()),
			zap.String("stored", d.Stored.String()),
			zap.String("expected", d.Expected.String()),
			zap.Bool("repaired", result.Repaired))
	}

	j.logger.Info("ledger reconciliation finished",
		zap.Int("specifications_checked", result.SpecificationsChecked),
		zap.Int("contracts_checked", result.ContractsChecked),
		zap.Int("drifts", len(result.Drifts)))
	return nil
}
