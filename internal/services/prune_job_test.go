package services

import (
	"context"
	"testing"
	"time"

	"employee-coupon/internal/apperror"
)

type countingPruner struct {
	calls int
	count int
	err   error
}

func (p *countingPruner) PruneExpired(_ context.Context, _ time.Time) (int, error) {
	p.calls++
	return p.count, p.err
}

func TestPruneJob_DisabledSkipsRepository(t *testing.T) {
	cfg := testCouponConfig()
	cfg.Enabled = false

	pruner := &countingPruner{}
	job := &PruneJob{cfg: cfg, rules: pruner, log: newTestLogger(), now: time.Now}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("disabled run must not fail: %v", err)
	}
	if pruner.calls != 0 {
		t.Fatalf("expected zero prune calls when disabled, got %d", pruner.calls)
	}
}

func TestPruneJob_DelegatesWhenEnabled(t *testing.T) {
	pruner := &countingPruner{count: 3}
	job := &PruneJob{cfg: testCouponConfig(), rules: pruner, log: newTestLogger(), now: time.Now}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if pruner.calls != 1 {
		t.Fatalf("expected one prune call, got %d", pruner.calls)
	}
}

func TestPruneJob_PropagatesPruneError(t *testing.T) {
	pruner := &countingPruner{count: 1, err: apperror.Unavailable("failed to delete 1 of 2 expired rules", nil)}
	job := &PruneJob{cfg: testCouponConfig(), rules: pruner, log: newTestLogger(), now: time.Now}

	if err := job.Run(context.Background()); !apperror.Is(err, apperror.KindUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestPruneJob_EndToEnd(t *testing.T) {
	rules := newFakeRuleRepo()
	rules.nextID = 1
	rules.rules[1] = ruleNamed(1, "Employee coupons for March 2023", time.Date(2023, time.August, 31, 0, 0, 0, 0, time.UTC))

	job := NewPruneJob(testCouponConfig(), newTestManager(rules, newFakeCouponRepo()), newTestLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(rules.rules) != 0 {
		t.Fatalf("expected expired rule pruned, got %d left", len(rules.rules))
	}
}
