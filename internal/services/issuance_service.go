package services

import (
	"context"
	"fmt"
	"time"

	"employee-coupon/internal/logger"
	"employee-coupon/internal/metrics"
	"employee-coupon/internal/models"

	"github.com/google/uuid"
)

// codeGenerator derives the deterministic code for a customer and month.
type codeGenerator interface {
	Generate(customerID uuid.UUID, ref time.Time) (string, error)
}

// ruleManager is the rule lifecycle surface the issuance workflow needs.
type ruleManager interface {
	EnsureRuleForCurrentMonth(ctx context.Context, now time.Time) (int64, error)
	AttachCoupon(ctx context.Context, ruleID int64, code string) error
}

// CouponIssuanceService runs the assign workflow for one customer:
// derive the code, make sure this month's rule exists, attach the code.
// Calling Assign twice for the same customer in one month is a no-op the
// second time because the derived code converges.
type CouponIssuanceService struct {
	gen   codeGenerator
	rules ruleManager
	log   *logger.Logger
	now   func() time.Time
}

// NewCouponIssuanceService creates an issuance service.
func NewCouponIssuanceService(gen *CodeGenerator, rules *MonthlyRuleManager, log *logger.Logger) *CouponIssuanceService {
	return &CouponIssuanceService{
		gen:   gen,
		rules: rules,
		log:   log,
		now:   time.Now,
	}
}

// Assign issues this month's coupon code to the customer. Preconditions
// (module enabled, eligible group) are the caller's responsibility.
func (s *CouponIssuanceService) Assign(ctx context.Context, customer models.Customer) error {
	start := time.Now()
	status := "failed"
	defer func() {
		metrics.RecordAssignDuration(status, time.Since(start).Seconds())
	}()

	now := s.now()

	code, err := s.gen.Generate(customer.ID, now)
	if err != nil {
		return fmt.Errorf("failed to generate coupon code: %w", err)
	}

	ruleID, err := s.rules.EnsureRuleForCurrentMonth(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to ensure monthly rule: %w", err)
	}

	if err := s.rules.AttachCoupon(ctx, ruleID, code); err != nil {
		return fmt.Errorf("failed to attach coupon: %w", err)
	}

	status = "success"
	s.log.WithFields(map[string]interface{}{
		"customer_id": customer.ID,
		"rule_id":     ruleID,
	}).Info("Coupon assigned")
	return nil
}
