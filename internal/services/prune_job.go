package services

import (
	"context"
	"time"

	"employee-coupon/internal/config"
	"employee-coupon/internal/logger"
)

// rulePruner is the prune surface of the rule manager.
type rulePruner interface {
	PruneExpired(ctx context.Context, now time.Time) (int, error)
}

// PruneJob is the scheduled entrypoint that retires expired monthly rules.
// Stateless between runs; any cadence is safe because pruning only ever
// deletes rules whose window has already elapsed.
type PruneJob struct {
	cfg   *config.CouponConfig
	rules rulePruner
	log   *logger.Logger
	now   func() time.Time
}

// NewPruneJob creates a prune job.
func NewPruneJob(cfg *config.CouponConfig, rules *MonthlyRuleManager, log *logger.Logger) *PruneJob {
	return &PruneJob{
		cfg:   cfg,
		rules: rules,
		log:   log,
		now:   time.Now,
	}
}

// Run prunes expired rules once. No-op when the module is disabled.
func (j *PruneJob) Run(ctx context.Context) error {
	if !j.cfg.Enabled {
		j.log.Debug("Coupon module disabled, skipping prune")
		return nil
	}

	count, err := j.rules.PruneExpired(ctx, j.now())
	if err != nil {
		j.log.WithError(err).WithField("count", count).Error("Prune finished with failures")
		return err
	}

	if count > 0 {
		j.log.WithField("count", count).Info("Pruned expired discount rules")
	}
	return nil
}
