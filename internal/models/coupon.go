package models

import "time"

// CouponIssueType marks how a coupon record came into existence.
type CouponIssueType string

const (
	// CouponIssueTypeSpecificAutogenerated marks codes generated by this
	// system rather than entered by an operator.
	CouponIssueTypeSpecificAutogenerated CouponIssueType = "specific_autogenerated"
)

// Coupon is one issued code bound to a DiscountRule. Codes are globally
// unique; a coupon is never mutated after creation and disappears only when
// its rule is pruned.
type Coupon struct {
	Code      string          `db:"code" json:"code"`
	RuleID    int64           `db:"rule_id" json:"rule_id"`
	Type      CouponIssueType `db:"type" json:"type"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
