package services

import (
	"context"
	"fmt"
	"time"

	"employee-coupon/internal/apperror"
	"employee-coupon/internal/config"
	"employee-coupon/internal/logger"
	"employee-coupon/internal/metrics"
	"employee-coupon/internal/models"

	"github.com/lib/pq"
)

// RuleRepository is the rule persistence contract the manager consumes.
type RuleRepository interface {
	FindByFromDate(ctx context.Context, fromDate time.Time) (*models.DiscountRule, error)
	FindExpiredByNamePrefix(ctx context.Context, now time.Time, prefix string) ([]*models.DiscountRule, error)
	Create(ctx context.Context, rule *models.DiscountRule) (int64, error)
	DeleteByID(ctx context.Context, id int64) error
}

// CouponRepository is the coupon persistence contract the manager consumes.
type CouponRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
}

// MonthlyRuleManager owns the discount rule lifecycle: at most one rule per
// calendar month, coupons attached to the current month's rule, expired
// rules pruned.
type MonthlyRuleManager struct {
	rules   RuleRepository
	coupons CouponRepository
	lock    *MonthLock
	cfg     *config.CouponConfig
	log     *logger.Logger
}

// NewMonthlyRuleManager creates a rule manager.
func NewMonthlyRuleManager(rules RuleRepository, coupons CouponRepository, lock *MonthLock, cfg *config.CouponConfig, log *logger.Logger) *MonthlyRuleManager {
	return &MonthlyRuleManager{
		rules:   rules,
		coupons: coupons,
		lock:    lock,
		cfg:     cfg,
		log:     log,
	}
}

// EnsureRuleForCurrentMonth returns the id of the discount rule for the
// month containing now, creating it when absent. Idempotent; safe under
// concurrent callers: creation runs behind the month lock and a losing
// create (duplicate from_date) falls back to re-fetching the winner.
func (m *MonthlyRuleManager) EnsureRuleForCurrentMonth(ctx context.Context, now time.Time) (int64, error) {
	window := models.NewMonthWindow(now)

	rule, err := m.rules.FindByFromDate(ctx, window.From)
	if err == nil {
		return rule.ID, nil
	}
	if !apperror.Is(err, apperror.KindNotFound) {
		return 0, err
	}

	release, acquired := m.lock.Acquire(ctx, window.From)
	defer release()
	if !acquired {
		m.log.WithField("month", window.MonthName()).Debug("Month lock held elsewhere, proceeding on uniqueness constraint")
	}

	// second lookup: another worker may have created the rule while we
	// were acquiring the lock
	rule, err = m.rules.FindByFromDate(ctx, window.From)
	if err == nil {
		return rule.ID, nil
	}
	if !apperror.Is(err, apperror.KindNotFound) {
		return 0, err
	}

	id, err := m.rules.Create(ctx, m.buildRule(window))
	if err == nil {
		m.log.WithFields(map[string]interface{}{
			"rule_id": id,
			"month":   window.MonthName(),
		}).Info("Monthly discount rule created")
		return id, nil
	}
	if apperror.Is(err, apperror.KindDuplicate) {
		// lost the create race; the winner's rule exists now
		rule, ferr := m.rules.FindByFromDate(ctx, window.From)
		if ferr != nil {
			return 0, ferr
		}
		return rule.ID, nil
	}
	return 0, err
}

// buildRule assembles the rule for a month window from configuration.
func (m *MonthlyRuleManager) buildRule(window models.MonthWindow) *models.DiscountRule {
	return &models.DiscountRule{
		Name:                fmt.Sprintf("%s for %s", m.cfg.NamePrefix, window.MonthName()),
		Active:              true,
		CouponType:          models.CouponTypeSpecific,
		CustomerGroupIDs:    pq.Int64Array(m.cfg.CustomerGroupIDs),
		WebsiteID:           m.cfg.WebsiteID,
		SimpleAction:        models.SimpleActionByPercent,
		DiscountPercent:     m.cfg.DiscountPercent,
		FromDate:            window.From,
		ToDate:              window.To,
		UseAutoGeneration:   true,
		StopRulesProcessing: false,
	}
}

// AttachCoupon binds a generated code to a rule. Codes are content-addressed
// by customer and month, so an existing code means the customer was already
// served this month and the call is a no-op. The caller must not derive a
// different code on retry.
func (m *MonthlyRuleManager) AttachCoupon(ctx context.Context, ruleID int64, code string) error {
	existing, err := m.coupons.FindByCode(ctx, code)
	if err == nil {
		m.log.WithField("rule_id", existing.RuleID).Debug("Coupon already issued, skipping")
		return nil
	}
	if !apperror.Is(err, apperror.KindNotFound) {
		return err
	}

	err = m.coupons.Create(ctx, &models.Coupon{
		Code:   code,
		RuleID: ruleID,
		Type:   models.CouponIssueTypeSpecificAutogenerated,
	})
	if apperror.Is(err, apperror.KindDuplicate) {
		// concurrent attach of the same code; already issued
		return nil
	}
	if err != nil {
		return err
	}

	metrics.CouponsIssued.Inc()
	return nil
}

// PruneExpired deletes every rule whose window has elapsed and whose name
// carries the module prefix. Deletion is best-effort per item: one failure
// does not abort the rest of the batch. Returns the number of rules deleted.
func (m *MonthlyRuleManager) PruneExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := m.rules.FindExpiredByNamePrefix(ctx, now.UTC(), m.cfg.NamePrefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	failed := 0
	var lastErr error
	for _, rule := range expired {
		if err := m.rules.DeleteByID(ctx, rule.ID); err != nil {
			failed++
			lastErr = err
			m.log.WithError(err).WithField("rule_id", rule.ID).Warn("Failed to delete expired rule")
			continue
		}
		deleted++
		metrics.RulesPruned.Inc()
	}

	if failed > 0 {
		return deleted, apperror.Unavailable(
			fmt.Sprintf("failed to delete %d of %d expired rules", failed, len(expired)), lastErr)
	}
	return deleted, nil
}
