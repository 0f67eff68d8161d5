package services

import (
	"context"

	"employee-coupon/internal/config"
	"employee-coupon/internal/logger"
	"employee-coupon/internal/models"
)

// couponAssigner is the issuance surface the event handler delegates to.
type couponAssigner interface {
	Assign(ctx context.Context, customer models.Customer) error
}

// CustomerEventHandler gates incoming customer lifecycle events: only when
// the module is enabled and the customer's group is in the eligible set does
// the event reach the issuance workflow. The gate performs no repository
// calls, so a disabled module costs nothing per event.
type CustomerEventHandler struct {
	cfg      *config.CouponConfig
	issuance couponAssigner
	log      *logger.Logger
}

// NewCustomerEventHandler creates an event handler.
func NewCustomerEventHandler(cfg *config.CouponConfig, issuance *CouponIssuanceService, log *logger.Logger) *CustomerEventHandler {
	return &CustomerEventHandler{
		cfg:      cfg,
		issuance: issuance,
		log:      log,
	}
}

// Handle processes one customer event.
func (h *CustomerEventHandler) Handle(ctx context.Context, event *models.Event) error {
	if !h.cfg.Enabled {
		return nil
	}

	if !h.eligible(event.Customer.GroupID) {
		h.log.WithFields(map[string]interface{}{
			"customer_id": event.Customer.ID,
			"group_id":    event.Customer.GroupID,
		}).Debug("Customer group not eligible, skipping")
		return nil
	}

	return h.issuance.Assign(ctx, event.Customer)
}

func (h *CustomerEventHandler) eligible(groupID int64) bool {
	for _, id := range h.cfg.CustomerGroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}
