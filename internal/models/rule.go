package models

import (
	"time"

	"github.com/lib/pq"
)

// CouponType defines how coupons are issued against a rule.
type CouponType string

const (
	// CouponTypeSpecific means each code is created individually and
	// redeemable on its own.
	CouponTypeSpecific CouponType = "specific"
)

// SimpleAction defines how a rule's discount is applied.
type SimpleAction string

const (
	SimpleActionByPercent SimpleAction = "by_percent"
)

// DiscountRule is a time-bounded promotional rule scoping eligible customer
// groups, a percentage discount and a validity window. The system keeps at
// most one rule per calendar month; its from_date is the first day of that
// month and carries a uniqueness constraint.
type DiscountRule struct {
	ID                  int64         `db:"id" json:"id"`
	Name                string        `db:"name" json:"name"`
	Active              bool          `db:"active" json:"active"`
	CouponType          CouponType    `db:"coupon_type" json:"coupon_type"`
	CustomerGroupIDs    pq.Int64Array `db:"customer_group_ids" json:"customer_group_ids"`
	WebsiteID           int64         `db:"website_id" json:"website_id"`
	SimpleAction        SimpleAction  `db:"simple_action" json:"simple_action"`
	DiscountPercent     float64       `db:"discount_percent" json:"discount_percent"`
	FromDate            time.Time     `db:"from_date" json:"from_date"`
	ToDate              time.Time     `db:"to_date" json:"to_date"`
	UseAutoGeneration   bool          `db:"use_auto_generation" json:"use_auto_generation"`
	StopRulesProcessing bool          `db:"stop_rules_processing" json:"stop_rules_processing"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`
}
