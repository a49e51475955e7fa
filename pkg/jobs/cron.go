package jobs

import (
	"context"
	"time"

	"github.com/jordanlanch/leadintake/pkg/audit"
	"github.com/jordanlanch/leadintake/pkg/logger"
	"github.com/robfig/cron/v3"
)

// CronManager manages scheduled jobs.
type CronManager struct {
	cron          *cron.Cron
	audit         *audit.Service
	log           logger.Logger
	retentionDays int
}

// NewCronManager creates a new cron manager. retentionDays <= 0 disables
// the history retention sweep (history is kept forever).
func NewCronManager(auditSvc *audit.Service, log logger.Logger, retentionDays int) *CronManager {
	return &CronManager{
		cron:          cron.New(),
		audit:         auditSvc,
		log:           log,
		retentionDays: retentionDays,
	}
}

// SetupJobs configures all scheduled jobs.
func (cm *CronManager) SetupJobs() error {
	if cm.retentionDays <= 0 {
		cm.log.Info("history retention sweep disabled")
		return nil
	}

	// Daily at 3 AM: prune history entries past the retention window.
	// Buyer deletion leaves history orphaned on purpose; this sweep is
	// what eventually removes it.
	_, err := cm.cron.AddFunc("0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		cutoff := time.Now().AddDate(0, 0, -cm.retentionDays)
		pruned, err := cm.audit.PruneOlderThan(ctx, cutoff)
		if err != nil {
			cm.log.Error("history retention sweep failed", "error", err)
			return
		}
		cm.log.Info("history retention sweep completed", "pruned", pruned, "cutoff", cutoff)
	})
	return err
}

// Start begins running scheduled jobs.
func (cm *CronManager) Start() {
	cm.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (cm *CronManager) Stop() {
	ctx := cm.cron.Stop()
	<-ctx.Done()
}
