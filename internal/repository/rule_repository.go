package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"employee-coupon/internal/apperror"
	"employee-coupon/internal/database"
	"employee-coupon/internal/logger"
	"employee-coupon/internal/models"

	"github.com/lib/pq"
)

// pqUniqueViolation is the PostgreSQL error code for unique constraint
// violations. discount_rules.from_date carries a unique constraint so that
// concurrent rule creation for the same month has exactly one winner.
const pqUniqueViolation = "23505"

// RuleRepository persists discount rules in PostgreSQL.
type RuleRepository struct {
	db  *database.DB
	log *logger.Logger
}

// NewRuleRepository creates a rule repository.
func NewRuleRepository(db *database.DB, log *logger.Logger) *RuleRepository {
	return &RuleRepository{
		db:  db,
		log: log,
	}
}

const ruleColumns = `id, name, active, coupon_type, customer_group_ids, website_id,
		simple_action, discount_percent, from_date, to_date,
		use_auto_generation, stop_rules_processing, created_at, updated_at`

// FindByFromDate returns the rule whose validity window starts on the given
// date. Absence is reported as a not_found error, not as success.
func (r *RuleRepository) FindByFromDate(ctx context.Context, fromDate time.Time) (*models.DiscountRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM discount_rules
		WHERE from_date = $1
	`

	var rule models.DiscountRule
	if err := r.db.GetContext(ctx, &rule, query, fromDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("discount rule not found", err)
		}
		return nil, apperror.Unavailable("failed to query discount rule", err)
	}

	return &rule, nil
}

// FindExpiredByNamePrefix lists rules whose window has fully elapsed and
// whose name carries the module's prefix. The prefix filter keeps the prune
// workflow away from promotional rules owned by anyone else.
func (r *RuleRepository) FindExpiredByNamePrefix(ctx context.Context, now time.Time, prefix string) ([]*models.DiscountRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM discount_rules
		WHERE to_date < $1 AND name LIKE $2 || '%'
		ORDER BY to_date ASC
	`

	var rules []*models.DiscountRule
	if err := r.db.SelectContext(ctx, &rules, query, now, prefix); err != nil {
		return nil, apperror.Unavailable("failed to list expired discount rules", err)
	}

	return rules, nil
}

// Create persists a new rule and returns its assigned id. A unique-violation
// on from_date surfaces as a duplicate error so the caller can re-fetch the
// winning rule.
func (r *RuleRepository) Create(ctx context.Context, rule *models.DiscountRule) (int64, error) {
	query := `
		INSERT INTO discount_rules (name, active, coupon_type, customer_group_ids, website_id,
			simple_action, discount_percent, from_date, to_date,
			use_auto_generation, stop_rules_processing, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	var id int64
	err := r.db.GetContext(ctx, &id, query,
		rule.Name, rule.Active, rule.CouponType, rule.CustomerGroupIDs, rule.WebsiteID,
		rule.SimpleAction, rule.DiscountPercent, rule.FromDate, rule.ToDate,
		rule.UseAutoGeneration, rule.StopRulesProcessing, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return 0, apperror.Duplicate("discount rule already exists for this month", err)
		}
		return 0, apperror.Unavailable("failed to create discount rule", err)
	}

	rule.ID = id
	r.log.WithField("rule_id", id).Info("Discount rule created")
	return id, nil
}

// DeleteByID removes a rule together with its dependent coupons in one
// transaction. The coupons are deleted explicitly rather than relying on a
// cascade being configured on the target database.
func (r *RuleRepository) DeleteByID(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Unavailable("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM coupons WHERE rule_id = $1`, id); err != nil {
		return apperror.Unavailable("failed to delete coupons for rule", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM discount_rules WHERE id = $1`, id)
	if err != nil {
		return apperror.Unavailable("failed to delete discount rule", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Unavailable("failed to get rows affected", err)
	}
	if rows == 0 {
		return apperror.NotFound("discount rule not found", nil)
	}

	if err := tx.Commit(); err != nil {
		return apperror.Unavailable("failed to commit rule deletion", err)
	}

	r.log.WithField("rule_id", id).Info("Discount rule deleted")
	return nil
}
