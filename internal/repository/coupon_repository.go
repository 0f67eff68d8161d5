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

// CouponRepository persists issued coupon codes in PostgreSQL.
type CouponRepository struct {
	db  *database.DB
	log *logger.Logger
}

// NewCouponRepository creates a coupon repository.
func NewCouponRepository(db *database.DB, log *logger.Logger) *CouponRepository {
	return &CouponRepository{
		db:  db,
		log: log,
	}
}

// FindByCode returns the coupon with the exact code, or a not_found error.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	query := `
		SELECT code, rule_id, type, created_at
		FROM coupons
		WHERE code = $1
	`

	var coupon models.Coupon
	if err := r.db.GetContext(ctx, &coupon, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("coupon not found", err)
		}
		return nil, apperror.Unavailable("failed to query coupon", err)
	}

	return &coupon, nil
}

// Create persists a coupon bound to a rule. Codes are globally unique; a
// unique-violation surfaces as a duplicate error and the caller treats it as
// already issued. A missing rule (deleted mid-flight by the prune workflow)
// surfaces as not_found via the foreign key.
func (r *CouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	query := `
		INSERT INTO coupons (code, rule_id, type, created_at)
		VALUES ($1, $2, $3, $4)
	`

	coupon.CreatedAt = time.Now().UTC()

	if _, err := r.db.ExecContext(ctx, query, coupon.Code, coupon.RuleID, coupon.Type, coupon.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pqUniqueViolation:
				return apperror.Duplicate("coupon code already exists", err)
			case pqForeignKeyViolation:
				return apperror.NotFound("discount rule no longer exists", err)
			}
		}
		return apperror.Unavailable("failed to create coupon", err)
	}

	r.log.WithField("rule_id", coupon.RuleID).Info("Coupon created")
	return nil
}

// pqForeignKeyViolation is the PostgreSQL error code for foreign key
// violations (coupons.rule_id referencing a pruned rule).
const pqForeignKeyViolation = "23503"
