package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"employee-coupon/internal/apperror"
	"employee-coupon/internal/config"
	"employee-coupon/internal/logger"
	"employee-coupon/internal/models"
)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
}

// fakeRuleRepo is an in-memory RuleRepository that enforces from_date
// uniqueness the way the real schema does.
type fakeRuleRepo struct {
	mu          sync.Mutex
	rules       map[int64]*models.DiscountRule
	nextID      int64
	failDelete  map[int64]bool
	createCalls int
	findCalls   int
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{
		rules:      make(map[int64]*models.DiscountRule),
		failDelete: make(map[int64]bool),
	}
}

func (f *fakeRuleRepo) FindByFromDate(_ context.Context, fromDate time.Time) (*models.DiscountRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	for _, r := range f.rules {
		if r.FromDate.Equal(fromDate) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("discount rule not found", nil)
}

func (f *fakeRuleRepo) FindExpiredByNamePrefix(_ context.Context, now time.Time, prefix string) ([]*models.DiscountRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.DiscountRule
	for _, r := range f.rules {
		if r.ToDate.Before(now) && len(r.Name) >= len(prefix) && r.Name[:len(prefix)] == prefix {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) Create(_ context.Context, rule *models.DiscountRule) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	for _, r := range f.rules {
		if r.FromDate.Equal(rule.FromDate) {
			return 0, apperror.Duplicate("discount rule already exists for this month", nil)
		}
	}
	f.nextID++
	cp := *rule
	cp.ID = f.nextID
	f.rules[cp.ID] = &cp
	rule.ID = cp.ID
	return cp.ID, nil
}

func (f *fakeRuleRepo) DeleteByID(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[id] {
		return apperror.Unavailable("delete failed", nil)
	}
	if _, ok := f.rules[id]; !ok {
		return apperror.NotFound("discount rule not found", nil)
	}
	delete(f.rules, id)
	return nil
}

// fakeCouponRepo is an in-memory CouponRepository enforcing code uniqueness.
type fakeCouponRepo struct {
	mu          sync.Mutex
	coupons     map[string]*models.Coupon
	createCalls int
}

func newFakeCouponRepo() *fakeCouponRepo {
	return &fakeCouponRepo{coupons: make(map[string]*models.Coupon)}
}

func (f *fakeCouponRepo) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.coupons[code]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, apperror.NotFound("coupon not found", nil)
}

func (f *fakeCouponRepo) Create(_ context.Context, coupon *models.Coupon) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if _, ok := f.coupons[coupon.Code]; ok {
		return apperror.Duplicate("coupon code already exists", nil)
	}
	cp := *coupon
	f.coupons[cp.Code] = &cp
	return nil
}

func ruleNamed(id int64, name string, toDate time.Time) *models.DiscountRule {
	return &models.DiscountRule{ID: id, Name: name, ToDate: toDate}
}

func newTestManager(rules *fakeRuleRepo, coupons *fakeCouponRepo) *MonthlyRuleManager {
	return NewMonthlyRuleManager(rules, coupons, NewMonthLock(nil, nil, 0), testCouponConfig(), newTestLogger())
}

func TestEnsureRuleForCurrentMonth_CreatesOnce(t *testing.T) {
	rules := newFakeRuleRepo()
	mgr := newTestManager(rules, newFakeCouponRepo())

	now := time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)

	first, err := mgr.EnsureRuleForCurrentMonth(context.Background(), now)
	if err != nil {
		t.Fatalf("first ensure failed: %v", err)
	}
	second, err := mgr.EnsureRuleForCurrentMonth(context.Background(), now)
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}

	if first != second {
		t.Fatalf("expected same rule id, got %d and %d", first, second)
	}
	if len(rules.rules) != 1 {
		t.Fatalf("expected exactly one rule, got %d", len(rules.rules))
	}
	if rules.createCalls != 1 {
		t.Fatalf("expected one create call, got %d", rules.createCalls)
	}

	rule := rules.rules[first]
	if rule.Name != "Employee coupons for January 2025" {
		t.Fatalf("unexpected rule name %q", rule.Name)
	}
	wantTo := time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
	if !rule.ToDate.Equal(wantTo) {
		t.Fatalf("expected to_date %v, got %v", wantTo, rule.ToDate)
	}
	if !rule.Active || rule.CouponType != models.CouponTypeSpecific || !rule.UseAutoGeneration {
		t.Fatalf("rule flags not set from configuration: %+v", rule)
	}
}

func TestEnsureRuleForCurrentMonth_ConcurrentCallers(t *testing.T) {
	rules := newFakeRuleRepo()
	mgr := newTestManager(rules, newFakeCouponRepo())

	now := time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = mgr.EnsureRuleForCurrentMonth(context.Background(), now)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("workers got different rule ids: %v", ids)
		}
	}
	if len(rules.rules) != 1 {
		t.Fatalf("expected exactly one rule after concurrent ensure, got %d", len(rules.rules))
	}
}

func TestAttachCoupon_Idempotent(t *testing.T) {
	rules := newFakeRuleRepo()
	coupons := newFakeCouponRepo()
	mgr := newTestManager(rules, coupons)

	if err := mgr.AttachCoupon(context.Background(), 1, "AB23XY9Z"); err != nil {
		t.Fatalf("first attach failed: %v", err)
	}
	if err := mgr.AttachCoupon(context.Background(), 1, "AB23XY9Z"); err != nil {
		t.Fatalf("second attach failed: %v", err)
	}

	if len(coupons.coupons) != 1 {
		t.Fatalf("expected exactly one coupon, got %d", len(coupons.coupons))
	}
	if coupons.createCalls != 1 {
		t.Fatalf("expected one create call, got %d", coupons.createCalls)
	}

	c := coupons.coupons["AB23XY9Z"]
	if c.RuleID != 1 || c.Type != models.CouponIssueTypeSpecificAutogenerated {
		t.Fatalf("unexpected coupon %+v", c)
	}
}

// racingCouponRepo simulates a concurrent attach landing between the lookup
// and the create: FindByCode misses, Create hits the unique constraint.
type racingCouponRepo struct {
	*fakeCouponRepo
}

func (r *racingCouponRepo) FindByCode(_ context.Context, _ string) (*models.Coupon, error) {
	return nil, apperror.NotFound("coupon not found", nil)
}

func TestAttachCoupon_DuplicateCreateTreatedAsIssued(t *testing.T) {
	coupons := newFakeCouponRepo()
	coupons.coupons["RACE23"] = &models.Coupon{Code: "RACE23", RuleID: 2}

	mgr := NewMonthlyRuleManager(newFakeRuleRepo(), &racingCouponRepo{coupons},
		NewMonthLock(nil, nil, 0), testCouponConfig(), newTestLogger())

	if err := mgr.AttachCoupon(context.Background(), 2, "RACE23"); err != nil {
		t.Fatalf("duplicate create must be treated as already issued, got %v", err)
	}
	if coupons.createCalls != 1 {
		t.Fatalf("expected one create attempt, got %d", coupons.createCalls)
	}
	if len(coupons.coupons) != 1 {
		t.Fatalf("expected exactly one coupon, got %d", len(coupons.coupons))
	}
}

func TestPruneExpired_DeletesOnlyExpiredMatchingRules(t *testing.T) {
	rules := newFakeRuleRepo()
	rules.nextID = 3
	rules.rules = map[int64]*models.DiscountRule{
		1: {ID: 1, Name: "Employee coupons for August 2023", ToDate: time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)},
		2: {ID: 2, Name: "Employee coupons for August 2098", ToDate: time.Date(2099, time.January, 31, 0, 0, 0, 0, time.UTC)},
		3: {ID: 3, Name: "Black Friday blowout", ToDate: time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)},
	}

	mgr := newTestManager(rules, newFakeCouponRepo())
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	count, err := mgr.PruneExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 rule pruned, got %d", count)
	}

	if _, ok := rules.rules[1]; ok {
		t.Fatalf("expected expired matching rule deleted")
	}
	if _, ok := rules.rules[2]; !ok {
		t.Fatalf("future rule must survive")
	}
	if _, ok := rules.rules[3]; !ok {
		t.Fatalf("non-matching rule must survive")
	}
}

func TestPruneExpired_ContinuesPastFailures(t *testing.T) {
	rules := newFakeRuleRepo()
	rules.nextID = 2
	rules.rules = map[int64]*models.DiscountRule{
		1: {ID: 1, Name: "Employee coupons for July 2023", ToDate: time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)},
		2: {ID: 2, Name: "Employee coupons for August 2023", ToDate: time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)},
	}
	rules.failDelete[1] = true

	mgr := newTestManager(rules, newFakeCouponRepo())
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	count, err := mgr.PruneExpired(context.Background(), now)
	if count != 1 {
		t.Fatalf("expected 1 rule pruned despite failure, got %d", count)
	}
	if !apperror.Is(err, apperror.KindUnavailable) {
		t.Fatalf("expected unavailable error reporting failures, got %v", err)
	}
	if _, ok := rules.rules[2]; ok {
		t.Fatalf("expected deletable rule removed")
	}
}
